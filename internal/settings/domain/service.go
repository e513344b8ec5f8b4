package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type UpdateCompanyRequest struct {
	CompanyName         *string  `json:"company_name"`
	Email               *string  `json:"email"`
	Phone               *string  `json:"phone"`
	Address             *string  `json:"address"`
	TaxID               *string  `json:"tax_id"`
	LogoURL             *string  `json:"logo_url"`
	InvoicePrefix       *string  `json:"invoice_prefix"`
	DefaultTaxRate      *float64 `json:"default_tax_rate"`
	DefaultDueDays      *int     `json:"default_due_days"`
	Currency            *string  `json:"currency"`
	PaymentInstructions *string  `json:"payment_instructions"`
}

type UpdateAppRequest struct {
	DateFormat   *string `json:"date_format"`
	Theme        *string `json:"theme"`
	DefaultNotes *string `json:"default_notes"`
}

type Service interface {
	GetCompany(ctx context.Context) (CompanySettings, error)
	UpdateCompany(ctx context.Context, req UpdateCompanyRequest) (CompanySettings, error)
	GetApp(ctx context.Context) (AppSettings, error)
	UpdateApp(ctx context.Context, req UpdateAppRequest) (AppSettings, error)

	// NextInvoiceNumber allocates the next sequential invoice number
	// inside the caller's transaction.
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error)
}

var (
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
	ErrInvalidDueDays = errors.New("invalid_due_days")
	ErrInvalidPrefix  = errors.New("invalid_prefix")
	ErrInvalidTheme   = errors.New("invalid_theme")
)
