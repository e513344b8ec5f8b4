package domain

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
)

// StatusCount is one slice of the invoice status breakdown. Overdue is
// derived from due date and balance, never read from storage.
type StatusCount struct {
	Status  string `json:"status"`
	Count   int64  `json:"count"`
	Total   int64  `json:"total"`
	Balance int64  `json:"balance"`
}

type RevenueRequest struct {
	From *time.Time
	To   *time.Time
}

// RevenuePoint is payments received in one calendar month.
type RevenuePoint struct {
	Period string `json:"period"`
	Amount int64  `json:"amount"`
}

type ClientTotal struct {
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	Invoices    int64  `json:"invoices"`
	Invoiced    int64  `json:"invoiced"`
	Paid        int64  `json:"paid"`
	Outstanding int64  `json:"outstanding"`
}

type AgingBucketTotal struct {
	Label   string `json:"label"`
	Count   int64  `json:"count"`
	Balance int64  `json:"balance"`
}

type AgingReport struct {
	AsOf    time.Time          `json:"as_of"`
	Buckets []AgingBucketTotal `json:"buckets"`
	Total   int64              `json:"total"`
}

type Dashboard struct {
	StatusCounts     []StatusCount             `json:"status_counts"`
	OutstandingTotal int64                     `json:"outstanding_total"`
	OverdueTotal     int64                     `json:"overdue_total"`
	RevenueThisMonth int64                     `json:"revenue_this_month"`
	ActiveClients    int64                     `json:"active_clients"`
	RecentActivity   []auditdomain.ActivityLog `json:"recent_activity"`
}

type Service interface {
	Dashboard(ctx context.Context) (Dashboard, error)
	Revenue(ctx context.Context, req RevenueRequest) ([]RevenuePoint, error)
	ClientTotals(ctx context.Context) ([]ClientTotal, error)
	StatusBreakdown(ctx context.Context) ([]StatusCount, error)
	Aging(ctx context.Context) (AgingReport, error)
}

var ErrInvalidRange = errors.New("invalid_time_range")
