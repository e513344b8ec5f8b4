package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	"github.com/smallbiznis/factura/internal/clock"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/observability/metrics"
	"github.com/smallbiznis/factura/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Invoices invoicedomain.Repository
	Audit    auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	invoices invoicedomain.Repository
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) Apply(ctx context.Context, req domain.ApplyPaymentRequest) (domain.Payment, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidInvoice
	}
	if req.Amount <= 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = domain.MethodOther
	}
	if !domain.ValidMethod(method) {
		return domain.Payment{}, domain.ErrInvalidMethod
	}

	now := s.clock.Now()
	paymentDate := dateOnly(now)
	if req.PaymentDate != nil {
		paymentDate = dateOnly(*req.PaymentDate)
	}

	payment := domain.Payment{
		ID:          s.genID.Generate(),
		InvoiceID:   invoiceID,
		Amount:      req.Amount,
		PaymentDate: paymentDate,
		Method:      method,
		Reference:   strings.TrimSpace(req.Reference),
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var from, to invoicedomain.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoices.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvalidInvoice
		}
		if err := s.checkConsistency(ctx, tx, invoice); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		from = invoice.Status
		updated, err := s.recompute(ctx, tx, invoice, now)
		if err != nil {
			return err
		}
		to = updated.Status
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPayment(ctx, method, payment.Amount)
	if from != to {
		s.metrics.RecordInvoiceTransition(ctx, string(from), string(to))
	}
	s.emitAudit(ctx, auditdomain.ActionPaymentApplied, payment.ID, nil, payment)
	return payment, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePaymentRequest) (domain.Payment, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	var previous, updated domain.Payment
	var from, to invoicedomain.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		invoice, err := s.invoices.FindByID(ctx, tx, existing.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrReconciliation
		}
		if err := s.checkConsistency(ctx, tx, invoice); err != nil {
			return err
		}

		previous = *existing
		next := *existing
		if req.Amount != nil {
			if *req.Amount <= 0 {
				return domain.ErrInvalidAmount
			}
			next.Amount = *req.Amount
		}
		if req.PaymentDate != nil {
			next.PaymentDate = dateOnly(*req.PaymentDate)
		}
		if req.Method != nil {
			method := strings.TrimSpace(*req.Method)
			if !domain.ValidMethod(method) {
				return domain.ErrInvalidMethod
			}
			next.Method = method
		}
		if req.Reference != nil {
			next.Reference = strings.TrimSpace(*req.Reference)
		}
		if req.Notes != nil {
			next.Notes = strings.TrimSpace(*req.Notes)
		}

		now := s.clock.Now()
		next.UpdatedAt = now

		// Remove-then-apply inside one transaction. The row keeps its id
		// so callers see an update, not a replacement.
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &next); err != nil {
			return err
		}

		from = invoice.Status
		recomputed, err := s.recompute(ctx, tx, invoice, now)
		if err != nil {
			return err
		}
		to = recomputed.Status
		updated = next
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	if from != to {
		s.metrics.RecordInvoiceTransition(ctx, string(from), string(to))
	}
	s.emitAudit(ctx, auditdomain.ActionPaymentUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) Remove(ctx context.Context, req domain.RemovePaymentRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	var removed domain.Payment
	var from, to invoicedomain.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		invoice, err := s.invoices.FindByID(ctx, tx, existing.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrReconciliation
		}
		if err := s.checkConsistency(ctx, tx, invoice); err != nil {
			return err
		}

		removed = *existing
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}

		from = invoice.Status
		recomputed, err := s.recompute(ctx, tx, invoice, s.clock.Now())
		if err != nil {
			return err
		}
		to = recomputed.Status
		return nil
	})
	if err != nil {
		return err
	}

	if from != to {
		s.metrics.RecordInvoiceTransition(ctx, string(from), string(to))
	}
	s.emitAudit(ctx, auditdomain.ActionPaymentRemoved, removed.ID, removed, nil)
	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPaymentRequest) (domain.Payment, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *payment, nil
}

func (s *Service) ListForInvoice(ctx context.Context, req domain.ListPaymentsRequest) ([]domain.Payment, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return nil, domain.ErrInvalidInvoice
	}
	return s.repo.FindByInvoice(ctx, s.db, invoiceID)
}

// recompute derives paid amount, balance and status from the full
// payment set. Cancelled invoices get fresh monetary fields but the
// status never reopens.
func (s *Service) recompute(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, now time.Time) (*invoicedomain.Invoice, error) {
	payments, err := s.repo.FindByInvoice(ctx, tx, invoice.ID)
	if err != nil {
		return nil, err
	}

	var amountPaid int64
	for _, p := range payments {
		amountPaid += p.Amount
	}

	next := *invoice
	next.AmountPaid = amountPaid
	next.BalanceDue = next.Total - amountPaid
	next.Status = invoicedomain.NextStatusForBalance(next.Status, next.BalanceDue)
	next.UpdatedAt = now

	if err := s.invoices.Update(ctx, tx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// checkConsistency compares the invoice's stored paid amount against
// the payment rows before mutating them. A mismatch means an earlier
// multi-step mutation partially completed.
func (s *Service) checkConsistency(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	payments, err := s.repo.FindByInvoice(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}
	var amountPaid int64
	for _, p := range payments {
		amountPaid += p.Amount
	}
	if amountPaid != invoice.AmountPaid {
		s.log.Warn("invoice derived fields diverge from payment rows",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Int64("stored_amount_paid", invoice.AmountPaid),
			zap.Int64("computed_amount_paid", amountPaid),
		)
		return domain.ErrReconciliation
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, id snowflake.ID, previous, current any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: auditdomain.EntityPayment,
		EntityID:   id,
		Action:     action,
		Previous:   previous,
		Current:    current,
	}); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
