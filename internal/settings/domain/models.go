package domain

import "time"

// CompanySettings is a singleton row (id = 1) holding the issuing
// business profile and invoice numbering state.
type CompanySettings struct {
	ID                  int16     `gorm:"primaryKey;default:1" json:"-"`
	CompanyName         string    `gorm:"not null;default:''" json:"company_name"`
	Email               string    `gorm:"not null;default:''" json:"email"`
	Phone               string    `gorm:"not null;default:''" json:"phone"`
	Address             string    `gorm:"not null;default:''" json:"address"`
	TaxID               string    `gorm:"not null;default:''" json:"tax_id"`
	LogoURL             string    `gorm:"not null;default:''" json:"logo_url"`
	InvoicePrefix       string    `gorm:"not null;default:'INV'" json:"invoice_prefix"`
	NextInvoiceNumber   int64     `gorm:"not null;default:1" json:"next_invoice_number"`
	DefaultTaxRate      float64   `gorm:"not null;default:0" json:"default_tax_rate"`
	DefaultDueDays      int       `gorm:"not null;default:30" json:"default_due_days"`
	Currency            string    `gorm:"not null;default:'USD'" json:"currency"`
	PaymentInstructions string    `gorm:"not null;default:''" json:"payment_instructions"`
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CompanySettings) TableName() string { return "company_settings" }

// AppSettings is a singleton row (id = 1) with presentation preferences.
type AppSettings struct {
	ID           int16     `gorm:"primaryKey;default:1" json:"-"`
	DateFormat   string    `gorm:"not null;default:'YYYY-MM-DD'" json:"date_format"`
	Theme        string    `gorm:"not null;default:'light'" json:"theme"`
	DefaultNotes string    `gorm:"not null;default:''" json:"default_notes"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AppSettings) TableName() string { return "app_settings" }
