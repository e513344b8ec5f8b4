package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"gorm.io/datatypes"
)

// Template is a reusable invoice outline. Items are stored as JSON in
// the caller-supplied shape and cloned into line items on use.
type Template struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"not null;default:''" json:"description,omitempty"`
	Items       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"items"`
	TaxRate     float64        `gorm:"not null;default:0" json:"tax_rate"`
	Notes       string         `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ItemInputs decodes the stored item JSON.
func (t Template) ItemInputs() ([]invoicedomain.ItemInput, error) {
	if len(t.Items) == 0 {
		return nil, nil
	}
	var items []invoicedomain.ItemInput
	if err := json.Unmarshal(t.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// EncodeItems serializes item inputs for storage.
func EncodeItems(items []invoicedomain.ItemInput) (datatypes.JSON, error) {
	if items == nil {
		items = []invoicedomain.ItemInput{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
