package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	"github.com/smallbiznis/factura/internal/clock"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/factura/internal/invoice/repository"
	recurringdomain "github.com/smallbiznis/factura/internal/recurring/domain"
	recurringrepo "github.com/smallbiznis/factura/internal/recurring/repository"
	recurringservice "github.com/smallbiznis/factura/internal/recurring/service"
	"github.com/smallbiznis/factura/internal/seed"
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	settingsservice "github.com/smallbiznis/factura/internal/settings/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, entry auditdomain.Entry) error {
	return nil
}

func (noopAudit) List(ctx context.Context, req auditdomain.ListActivityRequest) (auditdomain.ListActivityResponse, error) {
	return auditdomain.ListActivityResponse{}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_recurring_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&recurringdomain.Schedule{},
		&settingsdomain.CompanySettings{},
		&settingsdomain.AppSettings{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Conflict target for generated invoices; the migrations create it
	// as a partial unique index in production.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_invoices_schedule_period
		ON invoices(schedule_id, period_date) WHERE schedule_id IS NOT NULL`).Error; err != nil {
		t.Fatalf("create unique index: %v", err)
	}
	if err := seed.EnsureDefaultSettings(db); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) (recurringdomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	settingsSvc := settingsservice.New(settingsservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Audit: noopAudit{},
	})
	svc := recurringservice.NewService(recurringservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     recurringrepo.Provide(),
		Invoices: invoicerepo.Provide(),
		Settings: settingsSvc,
		Audit:    noopAudit{},
	})
	return svc, node
}

func seedClient(t *testing.T, db *gorm.DB, node *snowflake.Node) clientdomain.Client {
	t.Helper()

	now := time.Now().UTC()
	client := clientdomain.Client{
		ID:        node.Generate(),
		Name:      "Acme Co",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func createSchedule(t *testing.T, svc recurringdomain.Service, clientID string, start time.Time) recurringdomain.Schedule {
	t.Helper()

	dueInDays := 14
	schedule, err := svc.Create(context.Background(), recurringdomain.CreateScheduleRequest{
		ClientID:  clientID,
		Name:      "Monthly retainer",
		Frequency: "monthly",
		StartDate: &start,
		Items:     []invoicedomain.ItemInput{{Description: "Retainer", Quantity: 1, UnitRate: 50000}},
		TaxRate:   0.1,
		DueInDays: &dueInDays,
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return schedule
}

func TestCreateScheduleValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	client := seedClient(t, db, node)

	if _, err := svc.Create(ctx, recurringdomain.CreateScheduleRequest{
		ClientID:  client.ID.String(),
		Frequency: "daily",
		Items:     []invoicedomain.ItemInput{{Description: "Work", Quantity: 1, UnitRate: 100}},
	}); err != recurringdomain.ErrInvalidFrequency {
		t.Fatalf("bad frequency: err = %v, want %v", err, recurringdomain.ErrInvalidFrequency)
	}

	if _, err := svc.Create(ctx, recurringdomain.CreateScheduleRequest{
		ClientID:  client.ID.String(),
		Frequency: "monthly",
		Interval:  -1,
		Items:     []invoicedomain.ItemInput{{Description: "Work", Quantity: 1, UnitRate: 100}},
	}); err != recurringdomain.ErrInvalidInterval {
		t.Fatalf("bad interval: err = %v, want %v", err, recurringdomain.ErrInvalidInterval)
	}

	if _, err := svc.Create(ctx, recurringdomain.CreateScheduleRequest{
		ClientID:  node.Generate().String(),
		Frequency: "monthly",
		Items:     []invoicedomain.ItemInput{{Description: "Work", Quantity: 1, UnitRate: 100}},
	}); err != recurringdomain.ErrInvalidClient {
		t.Fatalf("missing client: err = %v, want %v", err, recurringdomain.ErrInvalidClient)
	}

	if _, err := svc.Create(ctx, recurringdomain.CreateScheduleRequest{
		ClientID:  client.ID.String(),
		Frequency: "monthly",
		Items:     []invoicedomain.ItemInput{{Description: "Credit", Quantity: 1, UnitRate: -100}},
	}); err != recurringdomain.ErrInvalidItems {
		t.Fatalf("negative rate: err = %v, want %v", err, recurringdomain.ErrInvalidItems)
	}
}

func TestRunDueGeneratesDraftAndAdvances(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	client := seedClient(t, db, node)
	schedule := createSchedule(t, svc, client.ID.String(), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	report, err := svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if report.Examined != 1 || report.Generated != 1 {
		t.Fatalf("report = %+v, want one examined, one generated", report)
	}

	var invoices []invoicedomain.Invoice
	if err := db.Where("schedule_id = ?", schedule.ID).Find(&invoices).Error; err != nil {
		t.Fatalf("load invoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(invoices))
	}
	generated := invoices[0]
	if generated.Status != invoicedomain.StatusDraft {
		t.Fatalf("status = %s, want draft", generated.Status)
	}
	if generated.InvoiceNumber != "INV-0001" {
		t.Fatalf("number = %s, want INV-0001", generated.InvoiceNumber)
	}
	if generated.Subtotal != 50000 || generated.TaxAmount != 5000 {
		t.Fatalf("totals = %d/%d, want 50000/5000", generated.Subtotal, generated.TaxAmount)
	}
	if generated.PeriodDate == nil || !generated.PeriodDate.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("period = %v, want 2025-02-01", generated.PeriodDate)
	}
	if !generated.DueDate.Equal(generated.IssueDate.AddDate(0, 0, 14)) {
		t.Fatalf("due date = %s, want issue + 14 days", generated.DueDate)
	}

	after, err := svc.GetByID(ctx, recurringdomain.GetScheduleRequest{ID: schedule.ID.String()})
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !after.NextDate.Equal(want) {
		t.Fatalf("next date = %s, want %s", after.NextDate, want)
	}
}

func TestRunDueIsIdempotentPerPeriod(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	client := seedClient(t, db, node)
	schedule := createSchedule(t, svc, client.ID.String(), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	if _, err := svc.RunDue(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Rewind the schedule to simulate a run that inserted the invoice
	// but died before advancing.
	if err := db.Exec(`UPDATE recurring_schedules SET next_date = ? WHERE id = ?`,
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), schedule.ID).Error; err != nil {
		t.Fatalf("rewind schedule: %v", err)
	}

	report, err := svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Generated != 0 {
		t.Fatalf("generated = %d, want 0 on retry", report.Generated)
	}

	var count int64
	if err := db.Model(&invoicedomain.Invoice{}).Where("schedule_id = ?", schedule.ID).Count(&count).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 1 {
		t.Fatalf("invoices = %d, want 1", count)
	}

	// The retry still completes the interrupted run by advancing.
	after, err := svc.GetByID(ctx, recurringdomain.GetScheduleRequest{ID: schedule.ID.String()})
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !after.NextDate.Equal(want) {
		t.Fatalf("next date = %s, want %s", after.NextDate, want)
	}
}

func TestRunDueCatchesUpWithOneInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	// Three monthly periods have elapsed since the start date.
	clk := clock.NewFakeClock(time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	client := seedClient(t, db, node)
	schedule := createSchedule(t, svc, client.ID.String(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	report, err := svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("generated = %d, want exactly one catch-up invoice", report.Generated)
	}

	after, err := svc.GetByID(ctx, recurringdomain.GetScheduleRequest{ID: schedule.ID.String()})
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	// The next date stays on the original cadence, one step past now.
	if want := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC); !after.NextDate.Equal(want) {
		t.Fatalf("next date = %s, want %s", after.NextDate, want)
	}
}

func TestRunDueDeactivatesPastEndDate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	client := seedClient(t, db, node)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	schedule, err := svc.Create(ctx, recurringdomain.CreateScheduleRequest{
		ClientID:  client.ID.String(),
		Name:      "Short engagement",
		Frequency: "monthly",
		StartDate: &start,
		EndDate:   &end,
		Items:     []invoicedomain.ItemInput{{Description: "Work", Quantity: 1, UnitRate: 10000}},
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	// The first run generates February and advances past the end date,
	// which deactivates the schedule in the same pass.
	report, err := svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("generated = %d, want 1", report.Generated)
	}

	after, err := svc.GetByID(ctx, recurringdomain.GetScheduleRequest{ID: schedule.ID.String()})
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if after.Active {
		t.Fatal("schedule still active past its end date")
	}
}

func TestUpdateScheduleDeactivate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	client := seedClient(t, db, node)
	schedule := createSchedule(t, svc, client.ID.String(), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	inactive := false
	updated, err := svc.Update(ctx, recurringdomain.UpdateScheduleRequest{
		ID:     schedule.ID.String(),
		Active: &inactive,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Fatal("schedule still active after deactivation")
	}

	report, err := svc.RunDue(ctx)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if report.Examined != 0 {
		t.Fatalf("examined = %d, want 0 for an inactive schedule", report.Examined)
	}
}
