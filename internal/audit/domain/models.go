package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActivityLog is an append-only record of a change to a billing entity.
type ActivityLog struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	EntityType string         `gorm:"not null;index:idx_activity_logs_entity,priority:1" json:"entity_type"`
	EntityID   snowflake.ID   `gorm:"not null;index:idx_activity_logs_entity,priority:2" json:"entity_id"`
	Action     string         `gorm:"not null" json:"action"`
	ActorType  string         `gorm:"not null;default:''" json:"actor_type"`
	ActorID    string         `gorm:"not null;default:''" json:"actor_id"`
	Source     string         `gorm:"not null;default:'api'" json:"source"`
	RequestID  string         `gorm:"not null;default:''" json:"request_id,omitempty"`
	IPAddress  string         `gorm:"not null;default:''" json:"ip_address,omitempty"`
	UserAgent  string         `gorm:"not null;default:''" json:"user_agent,omitempty"`
	Previous   datatypes.JSON `gorm:"type:jsonb" json:"previous,omitempty"`
	Current    datatypes.JSON `gorm:"type:jsonb" json:"current,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

const (
	EntityClient   = "client"
	EntityInvoice  = "invoice"
	EntityPayment  = "payment"
	EntityTemplate = "template"
	EntitySchedule = "schedule"
	EntityProject  = "project"
	EntityTask     = "task"
	EntityTime     = "time_entry"
	EntitySettings = "settings"
)

const (
	ActionCreated        = "created"
	ActionUpdated        = "updated"
	ActionDeleted        = "deleted"
	ActionSent           = "sent"
	ActionCancelled      = "cancelled"
	ActionMarkedPaid     = "marked_paid"
	ActionPaymentApplied = "payment_applied"
	ActionPaymentRemoved = "payment_removed"
	ActionPaymentUpdated = "payment_updated"
	ActionGenerated      = "generated"
)
