package migration

import (
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	"github.com/smallbiznis/factura/internal/config"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
	projectdomain "github.com/smallbiznis/factura/internal/project/domain"
	recurringdomain "github.com/smallbiznis/factura/internal/recurring/domain"
	"github.com/smallbiznis/factura/internal/seed"
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	templatedomain "github.com/smallbiznis/factura/internal/template/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql installs rely on the schema derived from
			// the models. The embedded SQL is postgres-specific.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
			if err := EnsureGeneratedInvoiceIndex(conn); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultSettings(conn)
	}),
)

// EnsureGeneratedInvoiceIndex creates the unique index that makes
// recurring generation idempotent per (schedule_id, period_date).
// Postgres gets the partial form from the embedded SQL and sqlite
// supports the same syntax; mysql has no partial indexes, so it gets a
// plain unique index, which still admits any number of NULL
// schedule_ids.
func EnsureGeneratedInvoiceIndex(conn *gorm.DB) error {
	const indexName = "uq_invoices_schedule_period"
	if conn.Dialector.Name() == "mysql" {
		if conn.Migrator().HasIndex(&invoicedomain.Invoice{}, indexName) {
			return nil
		}
		return conn.Exec(`CREATE UNIQUE INDEX ` + indexName +
			` ON invoices (schedule_id, period_date)`).Error
	}
	return conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + indexName +
		` ON invoices (schedule_id, period_date) WHERE schedule_id IS NOT NULL`).Error
}

// AutoMigrate creates the schema from the domain models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&clientdomain.Client{},
		&templatedomain.Template{},
		&recurringdomain.Schedule{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.Payment{},
		&projectdomain.Project{},
		&projectdomain.Task{},
		&projectdomain.TimeEntry{},
		&settingsdomain.CompanySettings{},
		&settingsdomain.AppSettings{},
		&auditdomain.ActivityLog{},
	)
}
