package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the persisted invoice lifecycle state. Overdue is never
// stored; it is derived from due date and balance at read time.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"not null;uniqueIndex:uq_invoices_number" json:"invoice_number"`
	ClientID      snowflake.ID  `gorm:"not null;index" json:"client_id"`
	Status        Status        `gorm:"not null;default:'draft';index" json:"status"`
	IssueDate     time.Time     `gorm:"type:date;not null" json:"issue_date"`
	DueDate       time.Time     `gorm:"type:date;not null;index" json:"due_date"`
	SentDate      *time.Time    `gorm:"type:date" json:"sent_date,omitempty"`
	Subtotal      int64         `gorm:"not null;default:0" json:"subtotal"`
	TaxRate       float64       `gorm:"not null;default:0" json:"tax_rate"`
	TaxAmount     int64         `gorm:"not null;default:0" json:"tax_amount"`
	Total         int64         `gorm:"not null;default:0" json:"total"`
	AmountPaid    int64         `gorm:"not null;default:0" json:"amount_paid"`
	BalanceDue    int64         `gorm:"not null;default:0" json:"balance_due"`
	Notes         string        `gorm:"not null;default:''" json:"notes,omitempty"`
	TemplateID    *snowflake.ID `json:"template_id,omitempty"`
	ScheduleID    *snowflake.ID `json:"schedule_id,omitempty"`
	PeriodDate    *time.Time    `gorm:"type:date" json:"period_date,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []LineItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Description string       `gorm:"not null;default:''" json:"description"`
	Quantity    float64      `gorm:"not null;default:1" json:"quantity"`
	UnitRate    int64        `gorm:"not null;default:0" json:"unit_rate"`
	Amount      int64        `gorm:"not null;default:0" json:"amount"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ItemInput is the caller-supplied shape of a line item. Templates and
// recurring schedules persist the same shape as JSON and clone it into
// real line items when an invoice is produced.
type ItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitRate    int64   `json:"unit_rate"`
}
