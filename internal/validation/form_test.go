package validation

import (
	"testing"

	"github.com/mmeshcher/topup-system/internal/model"
)

func TestMissingOrderFields(t *testing.T) {
	paid := model.OrderSubmission{
		PaymentMethod: model.PaymentMethodBkash,
		SenderNumber:  "01700000000",
		TransactionID: "TX123",
	}

	tests := []struct {
		name    string
		pkgType model.PackageType
		sub     model.OrderSubmission
		missing []string
	}{
		{
			name:    "diamond complete",
			pkgType: model.PackageTypeDiamond,
			sub: func() model.OrderSubmission {
				s := paid
				s.PlayerAccount = &model.PlayerAccount{UID: "123456789"}
				return s
			}(),
			missing: nil,
		},
		{
			name:    "diamond without uid",
			pkgType: model.PackageTypeDiamond,
			sub:     paid,
			missing: []string{FieldPlayerUID},
		},
		{
			name:    "membership requires uid like diamond",
			pkgType: model.PackageTypeMembership,
			sub: func() model.OrderSubmission {
				s := paid
				s.PlayerAccount = &model.PlayerAccount{UID: "987654321", Name: "player"}
				return s
			}(),
			missing: nil,
		},
		{
			name:    "in-game complete without backup code",
			pkgType: model.PackageTypeInGame,
			sub: func() model.OrderSubmission {
				s := paid
				s.LoginAccount = &model.LoginAccount{
					Method:   model.LoginMethodFacebook,
					LoginID:  "player@example.com",
					Password: "secret",
				}
				return s
			}(),
			missing: nil,
		},
		{
			name:    "in-game without login id",
			pkgType: model.PackageTypeInGame,
			sub: func() model.OrderSubmission {
				s := paid
				s.LoginAccount = &model.LoginAccount{
					Method:   model.LoginMethodGmail,
					Password: "secret",
				}
				return s
			}(),
			missing: []string{FieldLoginID},
		},
		{
			name:    "in-game without account at all",
			pkgType: model.PackageTypeInGame,
			sub:     paid,
			missing: []string{FieldLoginMethod, FieldLoginID, FieldLoginPassword},
		},
		{
			name:    "payment fields required for every type",
			pkgType: model.PackageTypeDiamond,
			sub: model.OrderSubmission{
				PlayerAccount: &model.PlayerAccount{UID: "123456789"},
			},
			missing: []string{FieldPaymentMethod, FieldSenderNumber, FieldTransactionID},
		},
		{
			name:    "unknown payment method",
			pkgType: model.PackageTypeDiamond,
			sub: func() model.OrderSubmission {
				s := paid
				s.PlayerAccount = &model.PlayerAccount{UID: "123456789"}
				s.PaymentMethod = "PayPal"
				return s
			}(),
			missing: []string{FieldPaymentMethod},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingOrderFields(tt.pkgType, tt.sub)
			if len(got) != len(tt.missing) {
				t.Fatalf("MissingOrderFields() = %v, want %v", got, tt.missing)
			}
			for i := range got {
				if got[i] != tt.missing[i] {
					t.Fatalf("MissingOrderFields() = %v, want %v", got, tt.missing)
				}
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{
			name:  "valid local number",
			phone: "01619789895",
			valid: true,
		},
		{
			name:  "valid international number",
			phone: "8801619789895",
			valid: true,
		},
		{
			name:  "too short",
			phone: "12345",
			valid: false,
		},
		{
			name:  "contains letters",
			phone: "017abc00000",
			valid: false,
		},
		{
			name:  "empty string",
			phone: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidPhone(tt.phone)
			if got != tt.valid {
				t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.valid)
			}
		})
	}
}
