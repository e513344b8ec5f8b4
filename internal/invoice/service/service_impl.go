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
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	templatedomain "github.com/smallbiznis/factura/internal/template/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      invoicedomain.Repository
	Settings  settingsdomain.Service
	Templates templatedomain.Service
	Audit     auditdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      invoicedomain.Repository
	settings  settingsdomain.Service
	templates templatedomain.Service
	audit     auditdomain.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		settings:  p.Settings,
		templates: p.Templates,
		audit:     p.Audit,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidClient
	}

	company, err := s.settings.GetCompany(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	items := req.Items
	taxRate := company.DefaultTaxRate
	notes := strings.TrimSpace(req.Notes)
	var templateID *snowflake.ID

	if strings.TrimSpace(req.TemplateID) != "" {
		tplID, err := parseID(req.TemplateID)
		if err != nil {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTemplate
		}
		tpl, err := s.templates.GetByID(ctx, templatedomain.GetTemplateRequest{ID: tplID.String()})
		if err != nil {
			if err == templatedomain.ErrNotFound {
				return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTemplate
			}
			return invoicedomain.Invoice{}, err
		}
		templateID = &tpl.ID
		taxRate = tpl.TaxRate
		if len(items) == 0 {
			items, err = tpl.ItemInputs()
			if err != nil {
				return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTemplate
			}
		}
		if notes == "" {
			notes = tpl.Notes
		}
	}

	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if err := validateItems(items); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if taxRate < 0 || taxRate > 1 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTaxRate
	}

	now := s.clock.Now()
	issueDate := dateOnly(now)
	if req.IssueDate != nil {
		issueDate = dateOnly(*req.IssueDate)
	}
	dueDate := issueDate.AddDate(0, 0, company.DefaultDueDays)
	if req.DueDate != nil {
		dueDate = dateOnly(*req.DueDate)
	}
	if dueDate.Before(issueDate) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDateRange
	}

	var created invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.clientExists(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if !exists {
			return invoicedomain.ErrInvalidClient
		}

		number, err := s.settings.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}

		invoiceID := s.genID.Generate()
		lineItems := s.buildLineItems(invoiceID, items, now)
		totals := invoicedomain.ComputeTotals(lineItems, taxRate, 0)

		created = invoicedomain.Invoice{
			ID:            invoiceID,
			InvoiceNumber: number,
			ClientID:      clientID,
			Status:        invoicedomain.StatusDraft,
			IssueDate:     issueDate,
			DueDate:       dueDate,
			Subtotal:      totals.Subtotal,
			TaxRate:       taxRate,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			AmountPaid:    0,
			BalanceDue:    totals.BalanceDue,
			Notes:         notes,
			TemplateID:    templateID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := s.repo.Insert(ctx, tx, &created); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, lineItems)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceCreated(ctx, "manual")
	s.emitAudit(ctx, auditdomain.ActionCreated, created.ID, nil, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	var updated invoicedomain.Invoice
	var previous invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status == invoicedomain.StatusCancelled {
			return invoicedomain.ErrNotEditable
		}

		structural := req.Items != nil || req.TaxRate != nil
		if structural && invoice.Status != invoicedomain.StatusDraft {
			return invoicedomain.ErrNotEditable
		}

		previous = *invoice
		next := *invoice
		now := s.clock.Now()

		if req.IssueDate != nil {
			if invoice.Status != invoicedomain.StatusDraft {
				return invoicedomain.ErrNotEditable
			}
			next.IssueDate = dateOnly(*req.IssueDate)
		}
		if req.DueDate != nil {
			next.DueDate = dateOnly(*req.DueDate)
		}
		if next.DueDate.Before(next.IssueDate) {
			return invoicedomain.ErrInvalidDateRange
		}
		if req.Notes != nil {
			next.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.TaxRate != nil {
			if *req.TaxRate < 0 || *req.TaxRate > 1 {
				return invoicedomain.ErrInvalidTaxRate
			}
			next.TaxRate = *req.TaxRate
		}

		items, err := s.repo.FindItems(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Items != nil {
			if err := validateItems(*req.Items); err != nil {
				return err
			}
			if err := s.repo.DeleteItems(ctx, tx, id); err != nil {
				return err
			}
			items = s.buildLineItems(id, *req.Items, now)
			if err := s.repo.InsertItems(ctx, tx, items); err != nil {
				return err
			}
		}

		totals := invoicedomain.ComputeTotals(items, next.TaxRate, next.AmountPaid)
		next.Subtotal = totals.Subtotal
		next.TaxAmount = totals.TaxAmount
		next.Total = totals.Total
		next.BalanceDue = totals.BalanceDue
		next.Status = invoicedomain.NextStatusForBalance(next.Status, next.BalanceDue)
		next.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req invoicedomain.GetInvoiceRequest) (invoicedomain.InvoiceDetail, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrInvalidID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	if invoice == nil {
		return invoicedomain.InvoiceDetail{}, invoicedomain.ErrNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, id)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	payments, err := s.repo.FindPayments(ctx, s.db, id)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	invoice.Items = items
	return invoicedomain.InvoiceDetail{
		Invoice:         *invoice,
		EffectiveStatus: invoicedomain.EffectiveStatus(invoice.Status, invoice.DueDate, invoice.BalanceDue, s.clock.Now()),
		Payments:        payments,
	}, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := invoicedomain.ListFilter{
		Number:    strings.TrimSpace(req.Number),
		DueFrom:   req.DueFrom,
		DueTo:     req.DueTo,
		IssueFrom: req.IssueFrom,
		IssueTo:   req.IssueTo,
	}

	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err := parseID(req.ClientID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidClient
		}
		filter.ClientID = clientID
	}

	now := s.clock.Now()
	today := dateOnly(now)
	switch status := invoicedomain.Status(strings.TrimSpace(req.Status)); status {
	case "":
	case invoicedomain.StatusOverdue:
		filter.OverdueAsOf = &today
	case invoicedomain.StatusSent:
		filter.Status = invoicedomain.StatusSent
		filter.ExcludeOverdueAsOf = &today
	case invoicedomain.StatusDraft, invoicedomain.StatusPaid, invoicedomain.StatusCancelled:
		filter.Status = status
	default:
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(inv *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	rows := make([]invoicedomain.InvoiceRow, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rows = append(rows, invoicedomain.InvoiceRow{
			Invoice:         *item,
			EffectiveStatus: invoicedomain.EffectiveStatus(item.Status, item.DueDate, item.BalanceDue, now),
		})
	}

	resp := invoicedomain.ListInvoiceResponse{Invoices: rows}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, req invoicedomain.DeleteInvoiceRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.ErrInvalidID
	}

	var deleted invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status != invoicedomain.StatusDraft {
			return invoicedomain.ErrNotDeletable
		}
		deleted = *invoice
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.ActionDeleted, id, deleted, nil)
	return nil
}

func (s *Service) Send(ctx context.Context, req invoicedomain.SendInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	var sent invoicedomain.Invoice
	var from invoicedomain.Status
	var already bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status == invoicedomain.StatusSent {
			// Re-sending is a no-op; the sent date is set exactly once.
			sent = *invoice
			already = true
			return nil
		}
		// paid->sent exists in the machine only for payment removal,
		// not for an explicit send.
		if invoice.Status != invoicedomain.StatusDraft {
			return invoicedomain.ErrInvalidTransition
		}

		from = invoice.Status
		now := s.clock.Now()
		next := *invoice
		next.Status = invoicedomain.StatusSent
		sentDate := dateOnly(now)
		next.SentDate = &sentDate
		next.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		sent = next
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if !already {
		s.metrics.RecordInvoiceTransition(ctx, string(from), string(invoicedomain.StatusSent))
		s.emitAudit(ctx, auditdomain.ActionSent, sent.ID, nil, sent)
	}
	return sent, nil
}

func (s *Service) Cancel(ctx context.Context, req invoicedomain.CancelInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	var cancelled invoicedomain.Invoice
	var from invoicedomain.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if !invoicedomain.CanTransition(invoice.Status, invoicedomain.StatusCancelled) {
			return invoicedomain.ErrInvalidTransition
		}

		from = invoice.Status
		next := *invoice
		next.Status = invoicedomain.StatusCancelled
		next.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		cancelled = next
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceTransition(ctx, string(from), string(invoicedomain.StatusCancelled))
	s.emitAudit(ctx, auditdomain.ActionCancelled, cancelled.ID, nil, cancelled)
	return cancelled, nil
}

// MarkPaid settles the remaining balance. When a balance is outstanding
// a synthetic payment covers it so the books still add up.
func (s *Service) MarkPaid(ctx context.Context, req invoicedomain.MarkPaidRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	var paid invoicedomain.Invoice
	var from invoicedomain.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status == invoicedomain.StatusCancelled || invoice.Status == invoicedomain.StatusPaid {
			return invoicedomain.ErrInvalidTransition
		}

		now := s.clock.Now()
		next := *invoice
		from = invoice.Status

		if next.BalanceDue > 0 {
			if err := s.insertSettlementPayment(ctx, tx, next.ID, next.BalanceDue, now); err != nil {
				return err
			}
			next.AmountPaid += next.BalanceDue
			next.BalanceDue = 0
		}
		next.Status = invoicedomain.StatusPaid
		next.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		paid = next
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceTransition(ctx, string(from), string(invoicedomain.StatusPaid))
	s.emitAudit(ctx, auditdomain.ActionMarkedPaid, paid.ID, nil, paid)
	return paid, nil
}

func (s *Service) Reconcile(ctx context.Context, req invoicedomain.ReconcileRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	var reconciled invoicedomain.Invoice
	var drifted bool
	var previous invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		items, err := s.repo.FindItems(ctx, tx, id)
		if err != nil {
			return err
		}
		payments, err := s.repo.FindPayments(ctx, tx, id)
		if err != nil {
			return err
		}

		var amountPaid int64
		for _, p := range payments {
			amountPaid += p.Amount
		}

		for i := range items {
			recomputed := invoicedomain.ItemAmount(items[i].Quantity, items[i].UnitRate)
			if recomputed != items[i].Amount {
				items[i].Amount = recomputed
				drifted = true
			}
		}

		totals := invoicedomain.ComputeTotals(items, invoice.TaxRate, amountPaid)
		next := *invoice
		next.Subtotal = totals.Subtotal
		next.TaxAmount = totals.TaxAmount
		next.Total = totals.Total
		next.AmountPaid = amountPaid
		next.BalanceDue = totals.BalanceDue
		next.Status = invoicedomain.NextStatusForBalance(next.Status, next.BalanceDue)

		if next.Subtotal != invoice.Subtotal ||
			next.TaxAmount != invoice.TaxAmount ||
			next.Total != invoice.Total ||
			next.AmountPaid != invoice.AmountPaid ||
			next.BalanceDue != invoice.BalanceDue ||
			next.Status != invoice.Status {
			drifted = true
		}

		if !drifted {
			reconciled = *invoice
			return nil
		}

		previous = *invoice
		now := s.clock.Now()
		next.UpdatedAt = now

		if err := s.repo.DeleteItems(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		reconciled = next
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if drifted {
		s.emitAudit(ctx, auditdomain.ActionUpdated, reconciled.ID, previous, reconciled)
	}
	return reconciled, nil
}

func (s *Service) buildLineItems(invoiceID snowflake.ID, inputs []invoicedomain.ItemInput, now time.Time) []invoicedomain.LineItem {
	items := make([]invoicedomain.LineItem, 0, len(inputs))
	for i, input := range inputs {
		items = append(items, invoicedomain.LineItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoiceID,
			Description: strings.TrimSpace(input.Description),
			Quantity:    input.Quantity,
			UnitRate:    input.UnitRate,
			Amount:      invoicedomain.ItemAmount(input.Quantity, input.UnitRate),
			Position:    i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return items
}

func (s *Service) clientExists(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(`SELECT COUNT(*) FROM clients WHERE id = ?`, id).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) insertSettlementPayment(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, amount int64, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO payments (id, invoice_id, amount, payment_date, method, reference, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.genID.Generate(),
		invoiceID,
		amount,
		dateOnly(now),
		"other",
		"",
		"balance settled on mark paid",
		now,
		now,
	).Error
}

func (s *Service) emitAudit(ctx context.Context, action string, id snowflake.ID, previous, current any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: auditdomain.EntityInvoice,
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
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

// validateItems allows zero quantities (placeholder lines) but never
// negative quantities or rates.
func validateItems(items []invoicedomain.ItemInput) error {
	if len(items) == 0 {
		return invoicedomain.ErrInvalidItems
	}
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return invoicedomain.ErrInvalidItems
		}
		if item.Quantity < 0 {
			return invoicedomain.ErrInvalidQuantity
		}
		if item.UnitRate < 0 {
			return invoicedomain.ErrInvalidRate
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
