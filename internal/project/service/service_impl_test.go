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
	projectdomain "github.com/smallbiznis/factura/internal/project/domain"
	projectrepo "github.com/smallbiznis/factura/internal/project/repository"
	projectservice "github.com/smallbiznis/factura/internal/project/service"
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

	dsn := fmt.Sprintf("file:memdb_project_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&projectdomain.Project{},
		&projectdomain.Task{},
		&projectdomain.TimeEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	svc    projectdomain.Service
	db     *gorm.DB
	node   *snowflake.Node
	client clientdomain.Client
}

func newFixture(t *testing.T, clk clock.Clock) fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := projectservice.NewService(projectservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     projectrepo.Provide(),
		Invoices: invoicerepo.Provide(),
		Audit:    noopAudit{},
	})

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

	return fixture{svc: svc, db: db, node: node, client: client}
}

func (f fixture) seedInvoice(t *testing.T, status invoicedomain.Status) invoicedomain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		InvoiceNumber: fmt.Sprintf("INV-%d", f.node.Generate()),
		ClientID:      f.client.ID,
		Status:        status,
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, 30),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func (f fixture) createProject(t *testing.T, rate int64) projectdomain.Project {
	t.Helper()

	project, err := f.svc.CreateProject(context.Background(), projectdomain.CreateProjectRequest{
		ClientID:   f.client.ID.String(),
		Name:       "Website rebuild",
		HourlyRate: rate,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func (f fixture) logTime(t *testing.T, projectID string, minutes int, rate int64, billable bool) projectdomain.TimeEntry {
	t.Helper()

	entry, err := f.svc.CreateTimeEntry(context.Background(), projectdomain.CreateTimeEntryRequest{
		ProjectID:  projectID,
		Minutes:    minutes,
		HourlyRate: rate,
		Billable:   &billable,
	})
	if err != nil {
		t.Fatalf("create time entry: %v", err)
	}
	return entry
}

func TestAttachTimeBuildsLineItemsAndMarksBilled(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	project := f.createProject(t, 12000)
	invoice := f.seedInvoice(t, invoicedomain.StatusDraft)

	// 90 minutes at the project rate, 30 minutes at an entry override.
	first := f.logTime(t, project.ID.String(), 90, 0, true)
	second := f.logTime(t, project.ID.String(), 30, 6000, true)

	result, err := f.svc.AttachTimeToInvoice(ctx, projectdomain.AttachTimeRequest{
		ProjectID: project.ID.String(),
		InvoiceID: invoice.ID.String(),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if result.Entries != 2 {
		t.Fatalf("entries = %d, want 2", result.Entries)
	}
	// 1.5h * 12000 + 0.5h * 6000
	if result.Amount != 21000 {
		t.Fatalf("amount = %d, want 21000", result.Amount)
	}

	var items []invoicedomain.LineItem
	if err := f.db.Where("invoice_id = ?", invoice.ID).Order("position").Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Quantity != 1.5 || items[0].UnitRate != 12000 || items[0].Amount != 18000 {
		t.Fatalf("item = %v/%d/%d, want 1.5/12000/18000", items[0].Quantity, items[0].UnitRate, items[0].Amount)
	}

	var after invoicedomain.Invoice
	if err := f.db.Where("id = ?", invoice.ID).First(&after).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if after.Subtotal != 21000 || after.BalanceDue != 21000 {
		t.Fatalf("invoice totals = %d/%d, want 21000/21000", after.Subtotal, after.BalanceDue)
	}

	for _, id := range []snowflake.ID{first.ID, second.ID} {
		var entry projectdomain.TimeEntry
		if err := f.db.Where("id = ?", id).First(&entry).Error; err != nil {
			t.Fatalf("load entry: %v", err)
		}
		if !entry.Billed || entry.InvoiceID == nil || *entry.InvoiceID != invoice.ID {
			t.Fatalf("entry %s not stamped billed against the invoice", id)
		}
	}
}

func TestAttachTimeRequiresDraftInvoice(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	project := f.createProject(t, 12000)
	invoice := f.seedInvoice(t, invoicedomain.StatusSent)
	f.logTime(t, project.ID.String(), 60, 0, true)

	if _, err := f.svc.AttachTimeToInvoice(ctx, projectdomain.AttachTimeRequest{
		ProjectID: project.ID.String(),
		InvoiceID: invoice.ID.String(),
	}); err != projectdomain.ErrInvoiceNotDraft {
		t.Fatalf("attach to sent invoice: err = %v, want %v", err, projectdomain.ErrInvoiceNotDraft)
	}
}

func TestAttachTimeRefusesBilledEntry(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	project := f.createProject(t, 12000)
	first := f.seedInvoice(t, invoicedomain.StatusDraft)
	entry := f.logTime(t, project.ID.String(), 60, 0, true)

	if _, err := f.svc.AttachTimeToInvoice(ctx, projectdomain.AttachTimeRequest{
		ProjectID: project.ID.String(),
		InvoiceID: first.ID.String(),
		EntryIDs:  []string{entry.ID.String()},
	}); err != nil {
		t.Fatalf("first attach: %v", err)
	}

	second := f.seedInvoice(t, invoicedomain.StatusDraft)
	if _, err := f.svc.AttachTimeToInvoice(ctx, projectdomain.AttachTimeRequest{
		ProjectID: project.ID.String(),
		InvoiceID: second.ID.String(),
		EntryIDs:  []string{entry.ID.String()},
	}); err != projectdomain.ErrEntryBilled {
		t.Fatalf("re-attach: err = %v, want %v", err, projectdomain.ErrEntryBilled)
	}
}

func TestAttachTimeSkipsNonBillable(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	project := f.createProject(t, 12000)
	invoice := f.seedInvoice(t, invoicedomain.StatusDraft)
	f.logTime(t, project.ID.String(), 60, 0, false)

	result, err := f.svc.AttachTimeToInvoice(ctx, projectdomain.AttachTimeRequest{
		ProjectID: project.ID.String(),
		InvoiceID: invoice.ID.String(),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if result.Entries != 0 {
		t.Fatalf("entries = %d, want 0 when nothing is billable", result.Entries)
	}
}

func TestSummaryTotalsUnbilledBillableWork(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	project := f.createProject(t, 12000)
	f.logTime(t, project.ID.String(), 90, 0, true)
	f.logTime(t, project.ID.String(), 30, 6000, true)
	f.logTime(t, project.ID.String(), 480, 0, false) // internal work

	summary, err := f.svc.Summary(ctx, projectdomain.GetProjectRequest{ID: project.ID.String()})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Entries != 2 || summary.Minutes != 120 {
		t.Fatalf("summary = %d entries/%d minutes, want 2/120", summary.Entries, summary.Minutes)
	}
	if summary.Amount != 21000 {
		t.Fatalf("amount = %d, want 21000", summary.Amount)
	}
}

func TestDeleteProjectBlockedByBilledEntries(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	project := f.createProject(t, 12000)
	invoice := f.seedInvoice(t, invoicedomain.StatusDraft)
	f.logTime(t, project.ID.String(), 60, 0, true)

	if _, err := f.svc.AttachTimeToInvoice(ctx, projectdomain.AttachTimeRequest{
		ProjectID: project.ID.String(),
		InvoiceID: invoice.ID.String(),
	}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := f.svc.DeleteProject(ctx, projectdomain.DeleteProjectRequest{ID: project.ID.String()}); err != projectdomain.ErrHasEntries {
		t.Fatalf("delete: err = %v, want %v", err, projectdomain.ErrHasEntries)
	}
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)
	project := f.createProject(t, 12000)

	task, err := f.svc.CreateTask(ctx, projectdomain.CreateTaskRequest{
		ProjectID: project.ID.String(),
		Name:      "Design homepage",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != projectdomain.TaskOpen {
		t.Fatalf("status = %s, want open", task.Status)
	}

	done := string(projectdomain.TaskDone)
	updated, err := f.svc.UpdateTask(ctx, projectdomain.UpdateTaskRequest{
		ID:     task.ID.String(),
		Status: &done,
	})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Status != projectdomain.TaskDone {
		t.Fatalf("status = %s, want done", updated.Status)
	}

	tasks, err := f.svc.ListTasks(ctx, projectdomain.ListTaskRequest{ProjectID: project.ID.String()})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}

	if err := f.svc.DeleteTask(ctx, projectdomain.DeleteTaskRequest{ID: task.ID.String()}); err != nil {
		t.Fatalf("delete task: %v", err)
	}
}

func TestTimeEntryValidation(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)
	project := f.createProject(t, 12000)

	if _, err := f.svc.CreateTimeEntry(ctx, projectdomain.CreateTimeEntryRequest{
		ProjectID: project.ID.String(),
		Minutes:   0,
	}); err != projectdomain.ErrInvalidMinutes {
		t.Fatalf("zero minutes: err = %v, want %v", err, projectdomain.ErrInvalidMinutes)
	}

	if _, err := f.svc.CreateTimeEntry(ctx, projectdomain.CreateTimeEntryRequest{
		ProjectID:  project.ID.String(),
		Minutes:    30,
		HourlyRate: -5,
	}); err != projectdomain.ErrInvalidRate {
		t.Fatalf("negative rate: err = %v, want %v", err, projectdomain.ErrInvalidRate)
	}
}
