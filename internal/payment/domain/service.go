package domain

import (
	"context"
	"errors"
	"time"
)

type ApplyPaymentRequest struct {
	InvoiceID   string     `json:"-"`
	Amount      int64      `json:"amount"`
	PaymentDate *time.Time `json:"payment_date"`
	Method      string     `json:"method"`
	Reference   string     `json:"reference"`
	Notes       string     `json:"notes"`
}

type UpdatePaymentRequest struct {
	ID          string     `json:"-"`
	Amount      *int64     `json:"amount"`
	PaymentDate *time.Time `json:"payment_date"`
	Method      *string    `json:"method"`
	Reference   *string    `json:"reference"`
	Notes       *string    `json:"notes"`
}

type RemovePaymentRequest struct {
	ID string
}

type GetPaymentRequest struct {
	ID string
}

type ListPaymentsRequest struct {
	InvoiceID string
}

type Service interface {
	// Apply records a payment and recomputes the invoice's paid amount,
	// balance and status from the full payment set.
	Apply(context.Context, ApplyPaymentRequest) (Payment, error)
	Update(context.Context, UpdatePaymentRequest) (Payment, error)
	Remove(context.Context, RemovePaymentRequest) error
	GetByID(context.Context, GetPaymentRequest) (Payment, error)
	ListForInvoice(context.Context, ListPaymentsRequest) ([]Payment, error)
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidInvoice = errors.New("invalid_invoice")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidMethod  = errors.New("invalid_method")
	ErrNotFound       = errors.New("not_found")

	// ErrReconciliation means the invoice's stored derived fields no
	// longer match its payment rows. The caller should reconcile the
	// invoice before mutating payments again.
	ErrReconciliation = errors.New("reconciliation_required")
)
