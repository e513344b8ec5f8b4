package domain

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

type CreateScheduleRequest struct {
	ClientID  string                    `json:"client_id"`
	Name      string                    `json:"name"`
	Frequency string                    `json:"frequency"`
	Interval  int                       `json:"interval"`
	StartDate *time.Time                `json:"start_date"`
	EndDate   *time.Time                `json:"end_date"`
	Items     []invoicedomain.ItemInput `json:"items"`
	TaxRate   float64                   `json:"tax_rate"`
	DueInDays *int                      `json:"due_in_days"`
	Notes     string                    `json:"notes"`
}

type UpdateScheduleRequest struct {
	ID        string                     `json:"-"`
	Name      *string                    `json:"name"`
	Frequency *string                    `json:"frequency"`
	Interval  *int                       `json:"interval"`
	EndDate   *time.Time                 `json:"end_date"`
	Active    *bool                      `json:"active"`
	Items     *[]invoicedomain.ItemInput `json:"items"`
	TaxRate   *float64                   `json:"tax_rate"`
	DueInDays *int                       `json:"due_in_days"`
	Notes     *string                    `json:"notes"`
}

type GetScheduleRequest struct {
	ID string
}

type DeleteScheduleRequest struct {
	ID string
}

type ListScheduleRequest struct {
	PageToken string
	PageSize  int
	ClientID  string
	Active    *bool
}

type ListScheduleResponse struct {
	pagination.PageInfo
	Schedules []Schedule `json:"schedules"`
}

// RunReport summarizes one generation pass.
type RunReport struct {
	Examined    int `json:"examined"`
	Generated   int `json:"generated"`
	Deactivated int `json:"deactivated"`
}

type Service interface {
	Create(context.Context, CreateScheduleRequest) (Schedule, error)
	Update(context.Context, UpdateScheduleRequest) (Schedule, error)
	GetByID(context.Context, GetScheduleRequest) (Schedule, error)
	List(context.Context, ListScheduleRequest) (ListScheduleResponse, error)
	Delete(context.Context, DeleteScheduleRequest) error

	// RunDue generates invoices for every due schedule. Safe to invoke
	// repeatedly; the (schedule, period) unique key makes retries no-ops.
	RunDue(ctx context.Context) (RunReport, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidClient    = errors.New("invalid_client")
	ErrInvalidFrequency = errors.New("invalid_frequency")
	ErrInvalidInterval  = errors.New("invalid_interval")
	ErrInvalidItems     = errors.New("invalid_items")
	ErrInvalidTaxRate   = errors.New("invalid_tax_rate")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrNotFound         = errors.New("not_found")
)
