package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/internal/recurring/domain"
	"github.com/smallbiznis/factura/pkg/db/option"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, schedule *domain.Schedule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO recurring_schedules (id, client_id, name, frequency, interval_count, start_date, next_date, end_date, active, items, tax_rate, due_in_days, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schedule.ID,
		schedule.ClientID,
		schedule.Name,
		schedule.Frequency,
		schedule.Interval,
		schedule.StartDate,
		schedule.NextDate,
		schedule.EndDate,
		schedule.Active,
		schedule.Items,
		schedule.TaxRate,
		schedule.DueInDays,
		schedule.Notes,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Schedule, error) {
	var schedule domain.Schedule
	err := db.WithContext(ctx).Raw(
		`SELECT id, client_id, name, frequency, interval_count, start_date, next_date, end_date, active, items, tax_rate, due_in_days, notes, created_at, updated_at
		 FROM recurring_schedules WHERE id = ?`,
		id,
	).Scan(&schedule).Error
	if err != nil {
		return nil, err
	}
	if schedule.ID == 0 {
		return nil, nil
	}
	return &schedule, nil
}

func (r *repo) FindDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	err := db.WithContext(ctx).Raw(
		`SELECT id, client_id, name, frequency, interval_count, start_date, next_date, end_date, active, items, tax_rate, due_in_days, notes, created_at, updated_at
		 FROM recurring_schedules
		 WHERE active = ? AND next_date <= ?
		 ORDER BY next_date ASC, id ASC`,
		true,
		asOf,
	).Scan(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Schedule, error) {
	query := db.WithContext(ctx).Model(&domain.Schedule{})
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	query = option.ApplyPagination(page).Apply(query)

	var schedules []*domain.Schedule
	if err := query.Order("created_at desc, id desc").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, schedule *domain.Schedule) error {
	return db.WithContext(ctx).Exec(
		`UPDATE recurring_schedules
		 SET name = ?, frequency = ?, interval_count = ?, next_date = ?, end_date = ?, active = ?, items = ?, tax_rate = ?, due_in_days = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		schedule.Name,
		schedule.Frequency,
		schedule.Interval,
		schedule.NextDate,
		schedule.EndDate,
		schedule.Active,
		schedule.Items,
		schedule.TaxRate,
		schedule.DueInDays,
		schedule.Notes,
		schedule.UpdatedAt,
		schedule.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM recurring_schedules WHERE id = ?`, id).Error
}
