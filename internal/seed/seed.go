// Package seed inserts the singleton settings rows a fresh install needs.
package seed

import (
	"time"

	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	"gorm.io/gorm"
)

// EnsureDefaultSettings creates the company and app settings rows when
// they do not exist yet. Existing rows are left untouched.
func EnsureDefaultSettings(conn *gorm.DB) error {
	now := time.Now().UTC()

	var companyCount int64
	if err := conn.Model(&settingsdomain.CompanySettings{}).Where("id = ?", 1).Count(&companyCount).Error; err != nil {
		return err
	}
	if companyCount == 0 {
		company := settingsdomain.CompanySettings{
			ID:                1,
			InvoicePrefix:     "INV",
			NextInvoiceNumber: 1,
			DefaultDueDays:    30,
			Currency:          "USD",
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := conn.Create(&company).Error; err != nil {
			return err
		}
	}

	var appCount int64
	if err := conn.Model(&settingsdomain.AppSettings{}).Where("id = ?", 1).Count(&appCount).Error; err != nil {
		return err
	}
	if appCount == 0 {
		app := settingsdomain.AppSettings{
			ID:         1,
			DateFormat: "YYYY-MM-DD",
			Theme:      "light",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := conn.Create(&app).Error; err != nil {
			return err
		}
	}

	return nil
}
