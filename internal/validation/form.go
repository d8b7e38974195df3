// Package validation содержит функции валидации входных данных.
package validation

import (
	"unicode"

	"github.com/mmeshcher/topup-system/internal/model"
)

// Имена полей формы заказа, возвращаемые при ошибках валидации.
const (
	FieldPlayerUID     = "playerUid"
	FieldLoginMethod   = "loginMethod"
	FieldLoginID       = "loginId"
	FieldLoginPassword = "loginPassword"
	FieldPaymentMethod = "paymentMethod"
	FieldSenderNumber  = "senderNumber"
	FieldTransactionID = "transactionId"
)

// MissingOrderFields возвращает имена обязательных полей формы заказа,
// которые отсутствуют или некорректны для товара данного типа.
// Пустой результат означает, что форма заполнена полностью.
func MissingOrderFields(pkgType model.PackageType, sub model.OrderSubmission) []string {
	var missing []string

	switch pkgType {
	case model.PackageTypeDiamond, model.PackageTypeMembership:
		// Для пополнения по UID и подписок нужен идентификатор игрока,
		// имя аккаунта необязательно.
		if sub.PlayerAccount == nil || sub.PlayerAccount.UID == "" {
			missing = append(missing, FieldPlayerUID)
		}
	case model.PackageTypeInGame:
		if sub.LoginAccount == nil || !sub.LoginAccount.Method.Valid() {
			missing = append(missing, FieldLoginMethod)
		}
		if sub.LoginAccount == nil || sub.LoginAccount.LoginID == "" {
			missing = append(missing, FieldLoginID)
		}
		if sub.LoginAccount == nil || sub.LoginAccount.Password == "" {
			missing = append(missing, FieldLoginPassword)
		}
	}

	if !sub.PaymentMethod.Valid() {
		missing = append(missing, FieldPaymentMethod)
	}
	if sub.SenderNumber == "" {
		missing = append(missing, FieldSenderNumber)
	}
	if sub.TransactionID == "" {
		missing = append(missing, FieldTransactionID)
	}

	return missing
}

// IsValidPhone проверяет, что строка похожа на номер телефона:
// только цифры, от 8 до 15 символов.
func IsValidPhone(phone string) bool {
	if len(phone) < 8 || len(phone) > 15 {
		return false
	}
	for _, ch := range phone {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}
