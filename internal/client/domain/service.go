package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/factura/pkg/db/pagination"
)

type CreateClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Notes   string `json:"notes"`
}

type UpdateClientRequest struct {
	ID      string  `json:"-"`
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Zip     *string `json:"zip"`
	Country *string `json:"country"`
	Notes   *string `json:"notes"`
}

type GetClientRequest struct {
	ID string
}

type DeleteClientRequest struct {
	ID string
}

type ListClientRequest struct {
	PageToken   string
	PageSize    int
	Name        string
	Email       string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListClientFilter struct {
	Name        string
	Email       string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	Update(context.Context, UpdateClientRequest) (Client, error)
	GetByID(context.Context, GetClientRequest) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
	Delete(context.Context, DeleteClientRequest) error
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidAddress = errors.New("invalid_address")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
	ErrHasInvoices    = errors.New("client_has_invoices")
)
