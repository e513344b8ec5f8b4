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
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/factura/internal/payment/repository"
	paymentservice "github.com/smallbiznis/factura/internal/payment/service"
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

	dsn := fmt.Sprintf("file:memdb_payment_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.Payment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) (paymentdomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := paymentservice.NewService(paymentservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     paymentrepo.Provide(),
		Invoices: invoicerepo.Provide(),
		Audit:    noopAudit{},
	})
	return svc, node
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, status invoicedomain.Status, total, amountPaid int64) invoicedomain.Invoice {
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

	invoice := invoicedomain.Invoice{
		ID:            node.Generate(),
		InvoiceNumber: "INV-0001",
		ClientID:      client.ID,
		Status:        status,
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, 30),
		Subtotal:      total,
		Total:         total,
		AmountPaid:    amountPaid,
		BalanceDue:    total - amountPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func loadInvoice(t *testing.T, db *gorm.DB, id snowflake.ID) invoicedomain.Invoice {
	t.Helper()

	var invoice invoicedomain.Invoice
	if err := db.Where("id = ?", id).First(&invoice).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	return invoice
}

func TestApplyFullPaymentMarksInvoicePaid(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 13500, 0)

	payment, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    13500,
		Method:    paymentdomain.MethodBankTransfer,
		Reference: "wire 881",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if payment.Amount != 13500 || payment.Method != paymentdomain.MethodBankTransfer {
		t.Fatalf("payment = %d/%s, want 13500/bank_transfer", payment.Amount, payment.Method)
	}

	after := loadInvoice(t, db, invoice.ID)
	if after.Status != invoicedomain.StatusPaid {
		t.Fatalf("status = %s, want paid", after.Status)
	}
	if after.AmountPaid != 13500 || after.BalanceDue != 0 {
		t.Fatalf("paid/balance = %d/%d, want 13500/0", after.AmountPaid, after.BalanceDue)
	}
}

func TestApplyPartialPaymentKeepsInvoiceSent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 13500, 0)

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    10000,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	after := loadInvoice(t, db, invoice.ID)
	if after.Status != invoicedomain.StatusSent {
		t.Fatalf("status = %s, want sent", after.Status)
	}
	if after.BalanceDue != 3500 {
		t.Fatalf("balance = %d, want 3500", after.BalanceDue)
	}
}

func TestApplyOverpaymentGoesNegative(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 10000, 0)

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    12000,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	after := loadInvoice(t, db, invoice.ID)
	if after.Status != invoicedomain.StatusPaid {
		t.Fatalf("status = %s, want paid", after.Status)
	}
	if after.BalanceDue != -2000 {
		t.Fatalf("balance = %d, want -2000", after.BalanceDue)
	}
}

func TestApplyValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 10000, 0)

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    0,
	}); err != paymentdomain.ErrInvalidAmount {
		t.Fatalf("zero amount: err = %v, want %v", err, paymentdomain.ErrInvalidAmount)
	}

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    100,
		Method:    "barter",
	}); err != paymentdomain.ErrInvalidMethod {
		t.Fatalf("bad method: err = %v, want %v", err, paymentdomain.ErrInvalidMethod)
	}

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: node.Generate().String(),
		Amount:    100,
	}); err != paymentdomain.ErrInvalidInvoice {
		t.Fatalf("missing invoice: err = %v, want %v", err, paymentdomain.ErrInvalidInvoice)
	}
}

func TestRemovePaymentReopensInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 10000, 0)

	payment, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    10000,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := loadInvoice(t, db, invoice.ID); got.Status != invoicedomain.StatusPaid {
		t.Fatalf("status after apply = %s, want paid", got.Status)
	}

	if err := svc.Remove(ctx, paymentdomain.RemovePaymentRequest{ID: payment.ID.String()}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	after := loadInvoice(t, db, invoice.ID)
	if after.Status != invoicedomain.StatusSent {
		t.Fatalf("status after remove = %s, want sent", after.Status)
	}
	if after.AmountPaid != 0 || after.BalanceDue != 10000 {
		t.Fatalf("paid/balance = %d/%d, want 0/10000", after.AmountPaid, after.BalanceDue)
	}
}

func TestCancelledInvoiceNeverReopens(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusCancelled, 10000, 0)

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    10000,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	after := loadInvoice(t, db, invoice.ID)
	if after.Status != invoicedomain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", after.Status)
	}
	// Monetary fields still track the payment rows.
	if after.AmountPaid != 10000 || after.BalanceDue != 0 {
		t.Fatalf("paid/balance = %d/%d, want 10000/0", after.AmountPaid, after.BalanceDue)
	}
}

func TestUpdatePaymentKeepsIDAndRecomputes(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 10000, 0)

	payment, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    10000,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	smaller := int64(4000)
	method := paymentdomain.MethodCheck
	updated, err := svc.Update(ctx, paymentdomain.UpdatePaymentRequest{
		ID:     payment.ID.String(),
		Amount: &smaller,
		Method: &method,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != payment.ID {
		t.Fatalf("payment id changed: %s -> %s", payment.ID, updated.ID)
	}
	if updated.Amount != 4000 || updated.Method != paymentdomain.MethodCheck {
		t.Fatalf("updated = %d/%s, want 4000/check", updated.Amount, updated.Method)
	}

	after := loadInvoice(t, db, invoice.ID)
	if after.Status != invoicedomain.StatusSent {
		t.Fatalf("status = %s, want sent after shrinking the payment", after.Status)
	}
	if after.AmountPaid != 4000 || after.BalanceDue != 6000 {
		t.Fatalf("paid/balance = %d/%d, want 4000/6000", after.AmountPaid, after.BalanceDue)
	}
}

func TestMutationsRefuseDriftedInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 10000, 0)

	payment, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    5000,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Simulate a partially completed mutation: the stored paid amount no
	// longer matches the payment rows.
	if err := db.Exec(`UPDATE invoices SET amount_paid = 9999 WHERE id = ?`, invoice.ID).Error; err != nil {
		t.Fatalf("corrupt invoice: %v", err)
	}

	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    100,
	}); err != paymentdomain.ErrReconciliation {
		t.Fatalf("apply on drifted invoice: err = %v, want %v", err, paymentdomain.ErrReconciliation)
	}
	if err := svc.Remove(ctx, paymentdomain.RemovePaymentRequest{ID: payment.ID.String()}); err != paymentdomain.ErrReconciliation {
		t.Fatalf("remove on drifted invoice: err = %v, want %v", err, paymentdomain.ErrReconciliation)
	}
}

func TestGetAndListPayments(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	invoice := seedInvoice(t, db, node, invoicedomain.StatusSent, 10000, 0)

	first, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    3000,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.Apply(ctx, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    2000,
	}); err != nil {
		t.Fatalf("apply second: %v", err)
	}

	got, err := svc.GetByID(ctx, paymentdomain.GetPaymentRequest{ID: first.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != 3000 {
		t.Fatalf("amount = %d, want 3000", got.Amount)
	}

	list, err := svc.ListForInvoice(ctx, paymentdomain.ListPaymentsRequest{InvoiceID: invoice.ID.String()})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("payments = %d, want 2", len(list))
	}

	if _, err := svc.GetByID(ctx, paymentdomain.GetPaymentRequest{ID: node.Generate().String()}); err != paymentdomain.ErrNotFound {
		t.Fatalf("missing payment: err = %v, want %v", err, paymentdomain.ErrNotFound)
	}
}
