package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MethodCash         = "cash"
	MethodCheck        = "check"
	MethodCreditCard   = "credit_card"
	MethodBankTransfer = "bank_transfer"
	MethodPaypal       = "paypal"
	MethodOther        = "other"
)

var validMethods = map[string]struct{}{
	MethodCash:         {},
	MethodCheck:        {},
	MethodCreditCard:   {},
	MethodBankTransfer: {},
	MethodPaypal:       {},
	MethodOther:        {},
}

// ValidMethod reports whether the payment method is one of the known
// values. An empty method defaults to "other" at apply time.
func ValidMethod(method string) bool {
	_, ok := validMethods[method]
	return ok
}

type Payment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Amount      int64        `gorm:"not null" json:"amount"`
	PaymentDate time.Time    `gorm:"type:date;not null" json:"payment_date"`
	Method      string       `gorm:"not null;default:'other'" json:"method"`
	Reference   string       `gorm:"not null;default:''" json:"reference,omitempty"`
	Notes       string       `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
