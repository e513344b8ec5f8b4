package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/factura/pkg/db/pagination"
)

type CreateProjectRequest struct {
	ClientID    string `json:"client_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HourlyRate  int64  `json:"hourly_rate"`
}

type UpdateProjectRequest struct {
	ID          string  `json:"-"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	HourlyRate  *int64  `json:"hourly_rate"`
}

type GetProjectRequest struct {
	ID string
}

type DeleteProjectRequest struct {
	ID string
}

type ListProjectRequest struct {
	PageToken string
	PageSize  int
	ClientID  string
	Status    string
}

type ListProjectResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type CreateTaskRequest struct {
	ProjectID   string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateTaskRequest struct {
	ID          string  `json:"-"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type DeleteTaskRequest struct {
	ID string
}

type ListTaskRequest struct {
	ProjectID string
	Status    string
}

type CreateTimeEntryRequest struct {
	ProjectID   string     `json:"-"`
	TaskID      string     `json:"task_id"`
	Description string     `json:"description"`
	EntryDate   *time.Time `json:"entry_date"`
	Minutes     int        `json:"minutes"`
	HourlyRate  int64      `json:"hourly_rate"`
	Billable    *bool      `json:"billable"`
}

type UpdateTimeEntryRequest struct {
	ID          string     `json:"-"`
	Description *string    `json:"description"`
	EntryDate   *time.Time `json:"entry_date"`
	Minutes     *int       `json:"minutes"`
	HourlyRate  *int64     `json:"hourly_rate"`
	Billable    *bool      `json:"billable"`
}

type DeleteTimeEntryRequest struct {
	ID string
}

type ListTimeEntryRequest struct {
	ProjectID string
	TaskID    string
	Billable  *bool
	Billed    *bool
}

// BillableSummary totals the unbilled billable work on a project.
type BillableSummary struct {
	ProjectID string `json:"project_id"`
	Entries   int    `json:"entries"`
	Minutes   int    `json:"minutes"`
	Amount    int64  `json:"amount"`
}

type AttachTimeRequest struct {
	ProjectID string   `json:"-"`
	InvoiceID string   `json:"invoice_id"`
	EntryIDs  []string `json:"entry_ids"`
}

// AttachTimeResult reports the line items added to the invoice.
type AttachTimeResult struct {
	InvoiceID string `json:"invoice_id"`
	Entries   int    `json:"entries"`
	Amount    int64  `json:"amount"`
}

type Service interface {
	CreateProject(context.Context, CreateProjectRequest) (Project, error)
	UpdateProject(context.Context, UpdateProjectRequest) (Project, error)
	GetProject(context.Context, GetProjectRequest) (Project, error)
	ListProjects(context.Context, ListProjectRequest) (ListProjectResponse, error)
	DeleteProject(context.Context, DeleteProjectRequest) error

	CreateTask(context.Context, CreateTaskRequest) (Task, error)
	UpdateTask(context.Context, UpdateTaskRequest) (Task, error)
	ListTasks(context.Context, ListTaskRequest) ([]Task, error)
	DeleteTask(context.Context, DeleteTaskRequest) error

	CreateTimeEntry(context.Context, CreateTimeEntryRequest) (TimeEntry, error)
	UpdateTimeEntry(context.Context, UpdateTimeEntryRequest) (TimeEntry, error)
	ListTimeEntries(context.Context, ListTimeEntryRequest) ([]TimeEntry, error)
	DeleteTimeEntry(context.Context, DeleteTimeEntryRequest) error

	Summary(context.Context, GetProjectRequest) (BillableSummary, error)

	// AttachTimeToInvoice converts unbilled billable entries into line
	// items on a draft invoice and stamps them billed so they are never
	// invoiced twice.
	AttachTimeToInvoice(context.Context, AttachTimeRequest) (AttachTimeResult, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidClient   = errors.New("invalid_client")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidMinutes  = errors.New("invalid_minutes")
	ErrInvalidInvoice  = errors.New("invalid_invoice")
	ErrInvoiceNotDraft = errors.New("invoice_not_editable")
	ErrEntryBilled     = errors.New("entry_already_billed")
	ErrNotFound        = errors.New("not_found")
	ErrHasEntries      = errors.New("project_has_billed_entries")
)
