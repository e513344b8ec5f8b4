package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/internal/project/domain"
	"github.com/smallbiznis/factura/pkg/db/option"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProject(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (id, client_id, name, description, status, hourly_rate, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.ClientID,
		project.Name,
		project.Description,
		project.Status,
		project.HourlyRate,
		project.CreatedAt,
		project.UpdatedAt,
	).Error
}

func (r *repo) FindProject(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, client_id, name, description, status, hourly_rate, created_at, updated_at
		 FROM projects WHERE id = ?`,
		id,
	).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) ListProjects(ctx context.Context, db *gorm.DB, filter domain.ProjectFilter, page pagination.Pagination) ([]*domain.Project, error) {
	query := db.WithContext(ctx).Model(&domain.Project{})
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query = option.ApplyPagination(page).Apply(query)

	var projects []*domain.Project
	if err := query.Order("created_at desc, id desc").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repo) UpdateProject(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects SET name = ?, description = ?, status = ?, hourly_rate = ?, updated_at = ? WHERE id = ?`,
		project.Name,
		project.Description,
		project.Status,
		project.HourlyRate,
		project.UpdatedAt,
		project.ID,
	).Error
}

func (r *repo) DeleteProject(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM projects WHERE id = ?`, id).Error
}

func (r *repo) CountBilledEntries(ctx context.Context, db *gorm.DB, projectID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM time_entries WHERE project_id = ? AND billed = ?`,
		projectID,
		true,
	).Scan(&count).Error
	return count, err
}

func (r *repo) InsertTask(ctx context.Context, db *gorm.DB, task *domain.Task) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tasks (id, project_id, name, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.ProjectID,
		task.Name,
		task.Description,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	).Error
}

func (r *repo) FindTask(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Task, error) {
	var task domain.Task
	err := db.WithContext(ctx).Raw(
		`SELECT id, project_id, name, description, status, created_at, updated_at FROM tasks WHERE id = ?`,
		id,
	).Scan(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == 0 {
		return nil, nil
	}
	return &task, nil
}

func (r *repo) ListTasks(ctx context.Context, db *gorm.DB, filter domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT id, project_id, name, description, status, created_at, updated_at FROM tasks WHERE project_id = ?`
	args := []any{filter.ProjectID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var tasks []domain.Task
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repo) UpdateTask(ctx context.Context, db *gorm.DB, task *domain.Task) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tasks SET name = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`,
		task.Name,
		task.Description,
		task.Status,
		task.UpdatedAt,
		task.ID,
	).Error
}

func (r *repo) DeleteTask(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM tasks WHERE id = ?`, id).Error
}

func (r *repo) InsertTimeEntry(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO time_entries (id, project_id, task_id, description, entry_date, minutes, hourly_rate, billable, billed, invoice_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ProjectID,
		entry.TaskID,
		entry.Description,
		entry.EntryDate,
		entry.Minutes,
		entry.HourlyRate,
		entry.Billable,
		entry.Billed,
		entry.InvoiceID,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindTimeEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, project_id, task_id, description, entry_date, minutes, hourly_rate, billable, billed, invoice_id, created_at, updated_at
		 FROM time_entries WHERE id = ?`,
		id,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) ListTimeEntries(ctx context.Context, db *gorm.DB, filter domain.TimeEntryFilter) ([]domain.TimeEntry, error) {
	query := `SELECT id, project_id, task_id, description, entry_date, minutes, hourly_rate, billable, billed, invoice_id, created_at, updated_at
		 FROM time_entries WHERE project_id = ?`
	args := []any{filter.ProjectID}
	if filter.TaskID != 0 {
		query += ` AND task_id = ?`
		args = append(args, filter.TaskID)
	}
	if filter.Billable != nil {
		query += ` AND billable = ?`
		args = append(args, *filter.Billable)
	}
	if filter.Billed != nil {
		query += ` AND billed = ?`
		args = append(args, *filter.Billed)
	}
	query += ` ORDER BY entry_date ASC, id ASC`

	var entries []domain.TimeEntry
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) UpdateTimeEntry(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Exec(
		`UPDATE time_entries
		 SET description = ?, entry_date = ?, minutes = ?, hourly_rate = ?, billable = ?, billed = ?, invoice_id = ?, updated_at = ?
		 WHERE id = ?`,
		entry.Description,
		entry.EntryDate,
		entry.Minutes,
		entry.HourlyRate,
		entry.Billable,
		entry.Billed,
		entry.InvoiceID,
		entry.UpdatedAt,
		entry.ID,
	).Error
}

func (r *repo) DeleteTimeEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM time_entries WHERE id = ?`, id).Error
}
