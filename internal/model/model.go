// Package model содержит доменные сущности магазина игровых пополнений.
package model

import "time"

// UserRole определяет роль пользователя в системе.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User представляет покупателя магазина. Роль определяется один раз при входе.
type User struct {
	ID        int64
	Name      string
	Phone     string
	Role      UserRole
	CreatedAt time.Time
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PackageType описывает тип товара в каталоге.
type PackageType string

const (
	// PackageTypeDiamond — пополнение алмазами напрямую по UID игрока.
	PackageTypeDiamond PackageType = "DIAMOND"
	// PackageTypeInGame — пополнение через вход в игровой аккаунт.
	PackageTypeInGame PackageType = "IN_GAME"
	// PackageTypeMembership — подписка или пропуск.
	PackageTypeMembership PackageType = "MEMBERSHIP"
)

// Valid сообщает, входит ли тип в фиксированное перечисление.
func (t PackageType) Valid() bool {
	switch t {
	case PackageTypeDiamond, PackageTypeInGame, PackageTypeMembership:
		return true
	}
	return false
}

// Package описывает товар каталога. Цена хранится в минимальных единицах валюты.
type Package struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Amount       int64       `json:"amount"`
	Price        int64       `json:"price"`
	Type         PackageType `json:"type"`
	DeliveryTime string      `json:"deliveryTime"`
}

// PackageUpdate описывает частичное обновление товара: nil-поля не меняются.
type PackageUpdate struct {
	Name         *string
	Amount       *int64
	Price        *int64
	Type         *PackageType
	DeliveryTime *string
}

// SiteSettings — единственная запись конфигурации сайта.
// Обновление всегда выполняет полную замену записи.
type SiteSettings struct {
	BkashNumber          string `json:"bkashNumber"`
	NagadNumber          string `json:"nagadNumber"`
	BinanceID            string `json:"binanceId"`
	ServiceChargePercent int64  `json:"serviceChargePercent"`
	NoticeText           string `json:"noticeText"`
	WhatsApp             string `json:"whatsapp"`
	Telegram             string `json:"telegram"`
}

// PaymentMethod описывает канал оплаты.
type PaymentMethod string

const (
	PaymentMethodBkash   PaymentMethod = "bKash"
	PaymentMethodNagad   PaymentMethod = "Nagad"
	PaymentMethodBinance PaymentMethod = "Binance"
)

// Valid сообщает, входит ли канал оплаты в фиксированное перечисление.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBkash, PaymentMethodNagad, PaymentMethodBinance:
		return true
	}
	return false
}

// Destination возвращает реквизит получателя для канала оплаты из настроек.
func (m PaymentMethod) Destination(s *SiteSettings) string {
	switch m {
	case PaymentMethodBkash:
		return s.BkashNumber
	case PaymentMethodNagad:
		return s.NagadNumber
	case PaymentMethodBinance:
		return s.BinanceID
	}
	return ""
}

// LoginMethod описывает способ входа в игровой аккаунт для заказов IN_GAME.
type LoginMethod string

const (
	LoginMethodFacebook LoginMethod = "FACEBOOK"
	LoginMethodGmail    LoginMethod = "GMAIL"
	LoginMethodVK       LoginMethod = "VK"
)

// Valid сообщает, входит ли способ входа в фиксированное перечисление.
func (m LoginMethod) Valid() bool {
	switch m {
	case LoginMethodFacebook, LoginMethodGmail, LoginMethodVK:
		return true
	}
	return false
}

// OrderStatus описывает статус жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Valid сообщает, входит ли статус в фиксированное перечисление.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// PlayerAccount — данные игрового аккаунта для заказов DIAMOND и MEMBERSHIP.
// Имя аккаунта необязательно.
type PlayerAccount struct {
	UID  string `json:"uid"`
	Name string `json:"name,omitempty"`
}

// LoginAccount — учётные данные для заказов IN_GAME.
// Резервный код необязателен, но рекомендуется для GMAIL.
type LoginAccount struct {
	Method     LoginMethod `json:"method"`
	LoginID    string      `json:"loginId"`
	Password   string      `json:"password"`
	BackupCode string      `json:"backupCode,omitempty"`
}

// OrderSubmission — данные формы заказа. Заполняется ровно один из
// вариантов аккаунта, соответствующий типу выбранного товара.
type OrderSubmission struct {
	PackageID     string         `json:"packageId"`
	PlayerAccount *PlayerAccount `json:"playerAccount,omitempty"`
	LoginAccount  *LoginAccount  `json:"loginAccount,omitempty"`
	PaymentMethod PaymentMethod  `json:"paymentMethod"`
	SenderNumber  string         `json:"senderNumber"`
	TransactionID string         `json:"transactionId"`
}

// Order описывает заказ. Поля товара — снимок на момент создания:
// последующие правки каталога исторические заказы не меняют.
type Order struct {
	ID            string
	UserID        int64
	PlayerAccount *PlayerAccount
	LoginAccount  *LoginAccount
	PackageID     string
	PackageName   string
	Amount        int64
	Price         int64
	ServiceCharge int64
	TotalPayable  int64
	PaymentMethod PaymentMethod
	SenderNumber  string
	TransactionID string
	Status        OrderStatus
	CreatedAt     time.Time
}

// Quote содержит расчёт стоимости заказа до его оформления.
type Quote struct {
	PackageID            string `json:"packageId"`
	Price                int64  `json:"price"`
	ServiceChargePercent int64  `json:"serviceChargePercent"`
	ServiceCharge        int64  `json:"serviceCharge"`
	TotalPayable         int64  `json:"totalPayable"`
}

// AdminStats содержит сводку для панели администратора.
type AdminStats struct {
	TotalRevenue  int64 `json:"totalRevenue"`
	TotalOrders   int   `json:"totalOrders"`
	PendingOrders int   `json:"pendingOrders"`
}
