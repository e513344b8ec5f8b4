package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"gorm.io/datatypes"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Schedule generates invoices on a cadence. The item snapshot captured
// at creation time is what generated invoices clone from.
type Schedule struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	ClientID  snowflake.ID   `gorm:"not null;index" json:"client_id"`
	Name      string         `gorm:"not null;default:''" json:"name"`
	Frequency Frequency      `gorm:"not null" json:"frequency"`
	Interval  int            `gorm:"column:interval_count;not null;default:1" json:"interval"`
	StartDate time.Time      `gorm:"type:date;not null" json:"start_date"`
	NextDate  time.Time      `gorm:"type:date;not null" json:"next_date"`
	EndDate   *time.Time     `gorm:"type:date" json:"end_date,omitempty"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	Items     datatypes.JSON `gorm:"not null;default:'[]'" json:"items"`
	TaxRate   float64        `gorm:"not null;default:0" json:"tax_rate"`
	DueInDays int            `gorm:"not null;default:30" json:"due_in_days"`
	Notes     string         `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Schedule) TableName() string {
	return "recurring_schedules"
}

func (s Schedule) ItemInputs() ([]invoicedomain.ItemInput, error) {
	var items []invoicedomain.ItemInput
	if len(s.Items) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(s.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func EncodeItems(items []invoicedomain.ItemInput) (datatypes.JSON, error) {
	if items == nil {
		items = []invoicedomain.ItemInput{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
