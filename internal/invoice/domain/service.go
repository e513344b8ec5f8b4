package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	ClientID   string      `json:"client_id"`
	TemplateID string      `json:"template_id"`
	IssueDate  *time.Time  `json:"issue_date"`
	DueDate    *time.Time  `json:"due_date"`
	TaxRate    *float64    `json:"tax_rate"`
	Notes      string      `json:"notes"`
	Items      []ItemInput `json:"items"`
}

type UpdateInvoiceRequest struct {
	ID        string       `json:"-"`
	IssueDate *time.Time   `json:"issue_date"`
	DueDate   *time.Time   `json:"due_date"`
	TaxRate   *float64     `json:"tax_rate"`
	Notes     *string      `json:"notes"`
	Items     *[]ItemInput `json:"items"`
}

type GetInvoiceRequest struct {
	ID string
}

type DeleteInvoiceRequest struct {
	ID string
}

type SendInvoiceRequest struct {
	ID string
}

type CancelInvoiceRequest struct {
	ID string
}

type MarkPaidRequest struct {
	ID string
}

type ReconcileRequest struct {
	ID string
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int
	ClientID  string
	Status    string
	Number    string
	DueFrom   *time.Time
	DueTo     *time.Time
	IssueFrom *time.Time
	IssueTo   *time.Time
}

// PaymentSummary is the payment shape embedded in an invoice detail
// response. The payment package owns the write model.
type PaymentSummary struct {
	ID          snowflake.ID `json:"id"`
	Amount      int64        `json:"amount"`
	PaymentDate time.Time    `json:"payment_date"`
	Method      string       `json:"method,omitempty"`
	Reference   string       `json:"reference,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

type InvoiceDetail struct {
	Invoice
	EffectiveStatus Status           `json:"effective_status"`
	Payments        []PaymentSummary `json:"payments"`
}

type InvoiceRow struct {
	Invoice
	EffectiveStatus Status `json:"effective_status"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []InvoiceRow `json:"invoices"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	Update(context.Context, UpdateInvoiceRequest) (Invoice, error)
	GetByID(context.Context, GetInvoiceRequest) (InvoiceDetail, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	Delete(context.Context, DeleteInvoiceRequest) error
	Send(context.Context, SendInvoiceRequest) (Invoice, error)
	Cancel(context.Context, CancelInvoiceRequest) (Invoice, error)
	MarkPaid(context.Context, MarkPaidRequest) (Invoice, error)

	// Reconcile recomputes totals from the stored line items and
	// payments and persists any drift it finds.
	Reconcile(context.Context, ReconcileRequest) (Invoice, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidClient     = errors.New("invalid_client")
	ErrInvalidTemplate   = errors.New("invalid_template")
	ErrInvalidItems      = errors.New("invalid_items")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidRate       = errors.New("invalid_rate")
	ErrInvalidTaxRate    = errors.New("invalid_tax_rate")
	ErrInvalidDateRange  = errors.New("invalid_date_range")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotEditable       = errors.New("invoice_not_editable")
	ErrNotDeletable      = errors.New("invoice_not_deletable")
	ErrNotFound          = errors.New("not_found")
)
