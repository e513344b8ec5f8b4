package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	ClientID snowflake.ID
	Active   *bool
}

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, schedule *Schedule) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Schedule, error)

	// FindDue returns active schedules whose next date is at or before
	// asOf, oldest first.
	FindDue(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]Schedule, error)
	List(ctx context.Context, tx *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Schedule, error)
	Update(ctx context.Context, tx *gorm.DB, schedule *Schedule) error
	Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}
