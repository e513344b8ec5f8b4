package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type ProjectFilter struct {
	ClientID snowflake.ID
	Status   ProjectStatus
}

type TaskFilter struct {
	ProjectID snowflake.ID
	Status    TaskStatus
}

type TimeEntryFilter struct {
	ProjectID snowflake.ID
	TaskID    snowflake.ID
	Billable  *bool
	Billed    *bool
}

type Repository interface {
	InsertProject(ctx context.Context, tx *gorm.DB, project *Project) error
	FindProject(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Project, error)
	ListProjects(ctx context.Context, tx *gorm.DB, filter ProjectFilter, page pagination.Pagination) ([]*Project, error)
	UpdateProject(ctx context.Context, tx *gorm.DB, project *Project) error
	DeleteProject(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
	CountBilledEntries(ctx context.Context, tx *gorm.DB, projectID snowflake.ID) (int64, error)

	InsertTask(ctx context.Context, tx *gorm.DB, task *Task) error
	FindTask(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Task, error)
	ListTasks(ctx context.Context, tx *gorm.DB, filter TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, tx *gorm.DB, task *Task) error
	DeleteTask(ctx context.Context, tx *gorm.DB, id snowflake.ID) error

	InsertTimeEntry(ctx context.Context, tx *gorm.DB, entry *TimeEntry) error
	FindTimeEntry(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*TimeEntry, error)
	ListTimeEntries(ctx context.Context, tx *gorm.DB, filter TimeEntryFilter) ([]TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, tx *gorm.DB, entry *TimeEntry) error
	DeleteTimeEntry(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}
