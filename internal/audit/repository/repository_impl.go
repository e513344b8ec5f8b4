package repository

import (
	"context"

	"github.com/smallbiznis/factura/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ActivityLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activity_logs (id, entity_type, entity_id, action, actor_type, actor_id, source, request_id, ip_address, user_agent, previous, current, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.ActorType,
		entry.ActorID,
		entry.Source,
		entry.RequestID,
		entry.IPAddress,
		entry.UserAgent,
		entry.Previous,
		entry.Current,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ActivityLog, error) {
	var entries []*domain.ActivityLog
	stmt := db.WithContext(ctx).Model(&domain.ActivityLog{})
	if filter.EntityType != "" {
		stmt = stmt.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != 0 {
		stmt = stmt.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *filter.EndAt)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
