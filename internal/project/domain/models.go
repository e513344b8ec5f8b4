package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

type TaskStatus string

const (
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

type Project struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	ClientID    snowflake.ID  `gorm:"not null;index" json:"client_id"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `gorm:"not null;default:''" json:"description,omitempty"`
	Status      ProjectStatus `gorm:"not null;default:'active'" json:"status"`
	HourlyRate  int64         `gorm:"not null;default:0" json:"hourly_rate"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

type Task struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID   snowflake.ID `gorm:"not null;index" json:"project_id"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description,omitempty"`
	Status      TaskStatus   `gorm:"not null;default:'open'" json:"status"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// TimeEntry tracks worked minutes. An hourly rate of zero falls back
// to the project rate when the entry is billed.
type TimeEntry struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID   snowflake.ID  `gorm:"not null;index" json:"project_id"`
	TaskID      *snowflake.ID `json:"task_id,omitempty"`
	Description string        `gorm:"not null;default:''" json:"description,omitempty"`
	EntryDate   time.Time     `gorm:"type:date;not null" json:"entry_date"`
	Minutes     int           `gorm:"not null" json:"minutes"`
	HourlyRate  int64         `gorm:"not null;default:0" json:"hourly_rate"`
	Billable    bool          `gorm:"not null;default:true" json:"billable"`
	Billed      bool          `gorm:"not null;default:false" json:"billed"`
	InvoiceID   *snowflake.ID `json:"invoice_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

// EffectiveRate picks the entry override when set.
func (e TimeEntry) EffectiveRate(projectRate int64) int64 {
	if e.HourlyRate > 0 {
		return e.HourlyRate
	}
	return projectRate
}
