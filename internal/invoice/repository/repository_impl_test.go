package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/migration"
	"gorm.io/gorm"
)

func TestInsertGeneratedSQLPerDialect(t *testing.T) {
	mysqlSQL := insertGeneratedSQL("mysql")
	if !strings.HasPrefix(mysqlSQL, "INSERT IGNORE INTO invoices") {
		t.Fatalf("mysql statement does not use INSERT IGNORE: %s", mysqlSQL)
	}
	if strings.Contains(mysqlSQL, "ON CONFLICT") {
		t.Fatalf("mysql statement carries ON CONFLICT: %s", mysqlSQL)
	}

	for _, dialect := range []string{"postgres", "sqlite"} {
		sqlText := insertGeneratedSQL(dialect)
		if !strings.Contains(sqlText, "ON CONFLICT (schedule_id, period_date) WHERE schedule_id IS NOT NULL DO NOTHING") {
			t.Fatalf("%s statement missing conflict clause: %s", dialect, sqlText)
		}
	}
}

func TestInsertGeneratedSkipsDuplicatePeriod(t *testing.T) {
	dsn := fmt.Sprintf("file:memdb_invrepo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Invoice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := migration.EnsureGeneratedInvoiceIndex(db); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	node, err := snowflake.NewNode(8)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	ctx := context.Background()
	r := Provide()
	scheduleID := node.Generate()
	period := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	build := func(number string) *domain.Invoice {
		return &domain.Invoice{
			ID:            node.Generate(),
			InvoiceNumber: number,
			ClientID:      node.Generate(),
			Status:        domain.StatusDraft,
			IssueDate:     period,
			DueDate:       period.AddDate(0, 0, 30),
			ScheduleID:    &scheduleID,
			PeriodDate:    &period,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	inserted, err := r.InsertGenerated(ctx, db, build("INV-0001"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert reported no row")
	}

	inserted, err = r.InsertGenerated(ctx, db, build("INV-0002"))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate period inserted a second invoice")
	}

	var count int64
	if err := db.Model(&domain.Invoice{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("invoices = %d, want 1", count)
	}
}
