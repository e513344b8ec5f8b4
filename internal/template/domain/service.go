package domain

import (
	"context"
	"errors"

	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

type CreateTemplateRequest struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Items       []invoicedomain.ItemInput `json:"items"`
	TaxRate     float64                   `json:"tax_rate"`
	Notes       string                    `json:"notes"`
}

type UpdateTemplateRequest struct {
	ID          string                     `json:"-"`
	Name        *string                    `json:"name"`
	Description *string                    `json:"description"`
	Items       *[]invoicedomain.ItemInput `json:"items"`
	TaxRate     *float64                   `json:"tax_rate"`
	Notes       *string                    `json:"notes"`
}

type GetTemplateRequest struct {
	ID string
}

type DeleteTemplateRequest struct {
	ID string
}

type ListTemplateRequest struct {
	PageToken string
	PageSize  int
	Name      string
}

type ListTemplateResponse struct {
	pagination.PageInfo
	Templates []Template `json:"templates"`
}

type Service interface {
	Create(context.Context, CreateTemplateRequest) (Template, error)
	Update(context.Context, UpdateTemplateRequest) (Template, error)
	GetByID(context.Context, GetTemplateRequest) (Template, error)
	List(context.Context, ListTemplateRequest) (ListTemplateResponse, error)
	Delete(context.Context, DeleteTemplateRequest) error
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidItems   = errors.New("invalid_items")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
