package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

// Entry describes one recordable change. Previous and Current hold entity
// snapshots and are serialized to JSON verbatim.
type Entry struct {
	EntityType string
	EntityID   snowflake.ID
	Action     string
	Previous   any
	Current    any
}

type ListActivityRequest struct {
	pagination.Pagination
	EntityType string
	EntityID   string
	Action     string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListActivityResponse struct {
	pagination.PageInfo
	Activities []ActivityLog `json:"activities"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidEntity    = errors.New("invalid_entity")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
