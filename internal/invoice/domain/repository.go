package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	ClientID  snowflake.ID
	Status    Status
	Number    string
	DueFrom   *time.Time
	DueTo     *time.Time
	IssueFrom *time.Time
	IssueTo   *time.Time

	// OverdueAsOf narrows to sent invoices past due with a balance.
	// Set when the caller filters on the derived overdue status.
	OverdueAsOf *time.Time

	// ExcludeOverdueAsOf narrows a sent filter to invoices that are
	// not yet past due, so stored and derived filters stay disjoint.
	ExcludeOverdueAsOf *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error

	// InsertGenerated inserts a schedule-produced invoice. The insert
	// is a no-op when the (schedule, period) pair already exists;
	// the bool reports whether a row was written.
	InsertGenerated(ctx context.Context, db *gorm.DB, invoice *Invoice) (bool, error)

	InsertItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	DeleteItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]LineItem, error)
	FindPayments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]PaymentSummary, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)

	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
