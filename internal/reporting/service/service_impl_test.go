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
	"github.com/smallbiznis/factura/internal/config"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
	reportingdomain "github.com/smallbiznis/factura/internal/reporting/domain"
	reportingservice "github.com/smallbiznis/factura/internal/reporting/service"
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

type fixture struct {
	svc    reportingdomain.Service
	db     *gorm.DB
	node   *snowflake.Node
	client clientdomain.Client
}

func newFixture(t *testing.T, clk clock.Clock) fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_reporting_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	holder, err := config.NewReportingConfigHolder()
	if err != nil {
		t.Fatalf("reporting config: %v", err)
	}

	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := reportingservice.NewService(reportingservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     clk,
		Reporting: holder,
		Audit:     noopAudit{},
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

func (f fixture) seedInvoice(t *testing.T, status invoicedomain.Status, due time.Time, total, balance int64) invoicedomain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		InvoiceNumber: fmt.Sprintf("INV-%d", f.node.Generate()),
		ClientID:      f.client.ID,
		Status:        status,
		IssueDate:     due.AddDate(0, 0, -30),
		DueDate:       due,
		Subtotal:      total,
		Total:         total,
		AmountPaid:    total - balance,
		BalanceDue:    balance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func (f fixture) seedPayment(t *testing.T, invoiceID snowflake.ID, date time.Time, amount int64) {
	t.Helper()

	now := time.Now().UTC()
	payment := paymentdomain.Payment{
		ID:          f.node.Generate(),
		InvoiceID:   invoiceID,
		Amount:      amount,
		PaymentDate: date,
		Method:      paymentdomain.MethodOther,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.db.Create(&payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func TestStatusBreakdownDerivesOverdue(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	f.seedInvoice(t, invoicedomain.StatusDraft, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 1000, 1000)
	f.seedInvoice(t, invoicedomain.StatusSent, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 2000, 2000)
	// Past due with balance: reported as overdue even though the stored
	// status is sent.
	f.seedInvoice(t, invoicedomain.StatusSent, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 3000, 3000)
	// Past due but settled: stays sent.
	f.seedInvoice(t, invoicedomain.StatusSent, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 4000, 0)

	counts, err := f.svc.StatusBreakdown(ctx)
	if err != nil {
		t.Fatalf("status breakdown: %v", err)
	}

	byStatus := map[string]reportingdomain.StatusCount{}
	for _, c := range counts {
		byStatus[c.Status] = c
	}

	if got := byStatus["draft"]; got.Count != 1 || got.Total != 1000 {
		t.Fatalf("draft = %+v, want 1 invoice / 1000", got)
	}
	if got := byStatus["sent"]; got.Count != 2 || got.Balance != 2000 {
		t.Fatalf("sent = %+v, want 2 invoices / 2000 balance", got)
	}
	if got := byStatus["overdue"]; got.Count != 1 || got.Balance != 3000 {
		t.Fatalf("overdue = %+v, want 1 invoice / 3000 balance", got)
	}
}

func TestAgingBucketsDefaults(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	day := func(daysAgo int) time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
	}

	f.seedInvoice(t, invoicedomain.StatusSent, day(10), 1000, 1000)  // 0-30
	f.seedInvoice(t, invoicedomain.StatusSent, day(45), 2000, 2000)  // 31-60
	f.seedInvoice(t, invoicedomain.StatusSent, day(75), 3000, 3000)  // 61-90
	f.seedInvoice(t, invoicedomain.StatusSent, day(200), 4000, 4000) // 90+
	f.seedInvoice(t, invoicedomain.StatusSent, day(45), 9000, 0)     // settled, excluded
	f.seedInvoice(t, invoicedomain.StatusDraft, day(45), 9000, 9000) // draft, excluded

	report, err := f.svc.Aging(ctx)
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if len(report.Buckets) != 4 {
		t.Fatalf("buckets = %d, want 4", len(report.Buckets))
	}

	wantBalances := []int64{1000, 2000, 3000, 4000}
	for i, want := range wantBalances {
		if report.Buckets[i].Balance != want {
			t.Fatalf("bucket %q balance = %d, want %d", report.Buckets[i].Label, report.Buckets[i].Balance, want)
		}
		if report.Buckets[i].Count != 1 {
			t.Fatalf("bucket %q count = %d, want 1", report.Buckets[i].Label, report.Buckets[i].Count)
		}
	}
	if report.Total != 10000 {
		t.Fatalf("total = %d, want 10000", report.Total)
	}
}

func TestRevenueGroupsByMonth(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	invoice := f.seedInvoice(t, invoicedomain.StatusPaid, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 10000, 0)
	f.seedPayment(t, invoice.ID, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), 3000)
	f.seedPayment(t, invoice.ID, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), 2000)
	f.seedPayment(t, invoice.ID, time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), 5000)

	points, err := f.svc.Revenue(ctx, reportingdomain.RevenueRequest{})
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 months", len(points))
	}
	if points[0].Period != "2025-01" || points[0].Amount != 5000 {
		t.Fatalf("january = %+v, want 2025-01 / 5000", points[0])
	}
	if points[1].Period != "2025-02" || points[1].Amount != 5000 {
		t.Fatalf("february = %+v, want 2025-02 / 5000", points[1])
	}

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Revenue(ctx, reportingdomain.RevenueRequest{From: &from, To: &to}); err != reportingdomain.ErrInvalidRange {
		t.Fatalf("inverted range: err = %v, want %v", err, reportingdomain.ErrInvalidRange)
	}
}

func TestDashboardAggregates(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	sent := f.seedInvoice(t, invoicedomain.StatusSent, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 2000, 2000)
	f.seedInvoice(t, invoicedomain.StatusSent, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 3000, 3000)
	f.seedPayment(t, sent.ID, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 1500)
	f.seedPayment(t, sent.ID, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 500)

	dashboard, err := f.svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.OutstandingTotal != 5000 {
		t.Fatalf("outstanding = %d, want 5000", dashboard.OutstandingTotal)
	}
	if dashboard.OverdueTotal != 3000 {
		t.Fatalf("overdue = %d, want 3000", dashboard.OverdueTotal)
	}
	if dashboard.RevenueThisMonth != 1500 {
		t.Fatalf("revenue this month = %d, want 1500", dashboard.RevenueThisMonth)
	}
	if dashboard.ActiveClients != 1 {
		t.Fatalf("active clients = %d, want 1", dashboard.ActiveClients)
	}
}

func TestClientTotals(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, clk)

	f.seedInvoice(t, invoicedomain.StatusSent, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 2000, 2000)
	f.seedInvoice(t, invoicedomain.StatusPaid, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 10000, 0)
	f.seedInvoice(t, invoicedomain.StatusCancelled, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 99000, 99000)

	totals, err := f.svc.ClientTotals(ctx)
	if err != nil {
		t.Fatalf("client totals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("rows = %d, want 1", len(totals))
	}
	got := totals[0]
	if got.ClientName != "Acme Co" {
		t.Fatalf("client = %s, want Acme Co", got.ClientName)
	}
	// Cancelled invoices are excluded from every column.
	if got.Invoices != 2 || got.Invoiced != 12000 || got.Paid != 10000 || got.Outstanding != 2000 {
		t.Fatalf("totals = %+v, want 2 invoices / 12000 / 10000 / 2000", got)
	}
}
