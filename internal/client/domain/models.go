package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client carries a structured postal address. Email and every address
// field are required; the service enforces this on create and update.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;default:''" json:"email"`
	Phone     string       `gorm:"not null;default:''" json:"phone,omitempty"`
	Company   string       `gorm:"not null;default:''" json:"company,omitempty"`
	Street    string       `gorm:"not null;default:''" json:"street"`
	City      string       `gorm:"not null;default:''" json:"city"`
	State     string       `gorm:"not null;default:''" json:"state"`
	Zip       string       `gorm:"not null;default:''" json:"zip"`
	Country   string       `gorm:"not null;default:''" json:"country"`
	Notes     string       `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
