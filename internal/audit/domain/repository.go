package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ActivityCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	EntityType string
	EntityID   snowflake.ID
	Action     string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *ActivityCursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ActivityLog, error)
}
