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
	"github.com/smallbiznis/factura/internal/recurring/domain"
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
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
	Settings settingsdomain.Service
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
	settings settingsdomain.Service
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("recurring.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
		settings: p.Settings,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateScheduleRequest) (domain.Schedule, error) {
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return domain.Schedule{}, domain.ErrInvalidClient
	}

	frequency := domain.Frequency(strings.TrimSpace(req.Frequency))
	if !domain.ValidFrequency(frequency) {
		return domain.Schedule{}, domain.ErrInvalidFrequency
	}
	interval := req.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return domain.Schedule{}, domain.ErrInvalidInterval
	}
	if err := validateItems(req.Items); err != nil {
		return domain.Schedule{}, err
	}
	if req.TaxRate < 0 || req.TaxRate > 1 {
		return domain.Schedule{}, domain.ErrInvalidTaxRate
	}

	encoded, err := domain.EncodeItems(req.Items)
	if err != nil {
		return domain.Schedule{}, domain.ErrInvalidItems
	}

	now := s.clock.Now()
	startDate := dateOnly(now)
	if req.StartDate != nil {
		startDate = dateOnly(*req.StartDate)
	}
	var endDate *time.Time
	if req.EndDate != nil {
		e := dateOnly(*req.EndDate)
		if e.Before(startDate) {
			return domain.Schedule{}, domain.ErrInvalidDateRange
		}
		endDate = &e
	}

	dueInDays := 0
	if req.DueInDays != nil {
		if *req.DueInDays < 0 {
			return domain.Schedule{}, domain.ErrInvalidDateRange
		}
		dueInDays = *req.DueInDays
	} else {
		company, err := s.settings.GetCompany(ctx)
		if err != nil {
			return domain.Schedule{}, err
		}
		dueInDays = company.DefaultDueDays
	}

	schedule := domain.Schedule{
		ID:        s.genID.Generate(),
		ClientID:  clientID,
		Name:      strings.TrimSpace(req.Name),
		Frequency: frequency,
		Interval:  interval,
		StartDate: startDate,
		NextDate:  startDate,
		EndDate:   endDate,
		Active:    true,
		Items:     encoded,
		TaxRate:   req.TaxRate,
		DueInDays: dueInDays,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.clientExists(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrInvalidClient
		}
		return s.repo.Insert(ctx, tx, &schedule)
	})
	if err != nil {
		return domain.Schedule{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionCreated, schedule.ID, nil, schedule)
	return schedule, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateScheduleRequest) (domain.Schedule, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Schedule{}, domain.ErrInvalidID
	}

	var previous, updated domain.Schedule
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		previous = *existing
		next := *existing
		if req.Name != nil {
			next.Name = strings.TrimSpace(*req.Name)
		}
		if req.Frequency != nil {
			frequency := domain.Frequency(strings.TrimSpace(*req.Frequency))
			if !domain.ValidFrequency(frequency) {
				return domain.ErrInvalidFrequency
			}
			next.Frequency = frequency
		}
		if req.Interval != nil {
			if *req.Interval < 1 {
				return domain.ErrInvalidInterval
			}
			next.Interval = *req.Interval
		}
		if req.EndDate != nil {
			e := dateOnly(*req.EndDate)
			if e.Before(next.StartDate) {
				return domain.ErrInvalidDateRange
			}
			next.EndDate = &e
		}
		if req.Active != nil {
			next.Active = *req.Active
		}
		if req.Items != nil {
			if err := validateItems(*req.Items); err != nil {
				return err
			}
			encoded, err := domain.EncodeItems(*req.Items)
			if err != nil {
				return domain.ErrInvalidItems
			}
			next.Items = encoded
		}
		if req.TaxRate != nil {
			if *req.TaxRate < 0 || *req.TaxRate > 1 {
				return domain.ErrInvalidTaxRate
			}
			next.TaxRate = *req.TaxRate
		}
		if req.DueInDays != nil {
			if *req.DueInDays < 0 {
				return domain.ErrInvalidDateRange
			}
			next.DueInDays = *req.DueInDays
		}
		if req.Notes != nil {
			next.Notes = strings.TrimSpace(*req.Notes)
		}
		next.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Schedule{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetScheduleRequest) (domain.Schedule, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Schedule{}, domain.ErrInvalidID
	}

	schedule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Schedule{}, err
	}
	if schedule == nil {
		return domain.Schedule{}, domain.ErrNotFound
	}
	return *schedule, nil
}

func (s *Service) List(ctx context.Context, req domain.ListScheduleRequest) (domain.ListScheduleResponse, error) {
	filter := domain.ListFilter{Active: req.Active}
	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err := parseID(req.ClientID)
		if err != nil {
			return domain.ListScheduleResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = clientID
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
		return domain.ListScheduleResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(schedule *domain.Schedule) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        schedule.ID.String(),
			CreatedAt: schedule.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	schedules := make([]domain.Schedule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		schedules = append(schedules, *item)
	}

	resp := domain.ListScheduleResponse{Schedules: schedules}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteScheduleRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	var deleted domain.Schedule
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		deleted = *existing
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.ActionDeleted, id, deleted, nil)
	return nil
}

// RunDue walks the due schedules and generates one invoice each. The
// invoice insert and the schedule advance commit together; the advance
// never happens unless the insert is confirmed or the period already
// has an invoice from an earlier partial run.
func (s *Service) RunDue(ctx context.Context) (domain.RunReport, error) {
	today := dateOnly(s.clock.Now())

	schedules, err := s.repo.FindDue(ctx, s.db, today)
	if err != nil {
		return domain.RunReport{}, err
	}

	var report domain.RunReport
	var generated []invoicedomain.Invoice
	for i := range schedules {
		report.Examined++
		outcome, invoice, err := s.runSchedule(ctx, schedules[i].ID, today)
		if err != nil {
			s.log.Error("schedule run failed",
				zap.String("schedule_id", schedules[i].ID.String()),
				zap.Error(err),
			)
			return report, err
		}
		switch outcome {
		case outcomeGenerated:
			report.Generated++
			generated = append(generated, invoice)
			s.metrics.RecordRecurringGenerated(ctx, string(schedules[i].Frequency))
			s.metrics.RecordInvoiceCreated(ctx, "recurring")
		case outcomeDeactivated:
			report.Deactivated++
		}
	}

	for i := range generated {
		s.emitInvoiceAudit(ctx, generated[i])
	}
	return report, nil
}

type runOutcome int

const (
	outcomeSkipped runOutcome = iota
	outcomeGenerated
	outcomeDeactivated
)

func (s *Service) runSchedule(ctx context.Context, id snowflake.ID, today time.Time) (runOutcome, invoicedomain.Invoice, error) {
	var outcome runOutcome
	var generated invoicedomain.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if schedule == nil {
			return nil
		}

		if !domain.Due(*schedule, today) {
			if schedule.Active && schedule.EndDate != nil && today.After(*schedule.EndDate) {
				schedule.Active = false
				schedule.UpdatedAt = s.clock.Now()
				if err := s.repo.Update(ctx, tx, schedule); err != nil {
					return err
				}
				outcome = outcomeDeactivated
			}
			return nil
		}

		items, err := schedule.ItemInputs()
		if err != nil {
			return err
		}

		number, err := s.settings.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		period := dateOnly(schedule.NextDate)
		invoiceID := s.genID.Generate()
		lineItems := make([]invoicedomain.LineItem, 0, len(items))
		for pos, input := range items {
			lineItems = append(lineItems, invoicedomain.LineItem{
				ID:          s.genID.Generate(),
				InvoiceID:   invoiceID,
				Description: strings.TrimSpace(input.Description),
				Quantity:    input.Quantity,
				UnitRate:    input.UnitRate,
				Amount:      invoicedomain.ItemAmount(input.Quantity, input.UnitRate),
				Position:    pos,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		totals := invoicedomain.ComputeTotals(lineItems, schedule.TaxRate, 0)

		invoice := invoicedomain.Invoice{
			ID:            invoiceID,
			InvoiceNumber: number,
			ClientID:      schedule.ClientID,
			Status:        invoicedomain.StatusDraft,
			IssueDate:     period,
			DueDate:       period.AddDate(0, 0, schedule.DueInDays),
			Subtotal:      totals.Subtotal,
			TaxRate:       schedule.TaxRate,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			BalanceDue:    totals.BalanceDue,
			Notes:         schedule.Notes,
			ScheduleID:    &schedule.ID,
			PeriodDate:    &period,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		inserted, err := s.invoices.InsertGenerated(ctx, tx, &invoice)
		if err != nil {
			return err
		}
		if inserted {
			if err := s.invoices.InsertItems(ctx, tx, lineItems); err != nil {
				return err
			}
			generated = invoice
			outcome = outcomeGenerated
		}

		// A conflict means an earlier run created the invoice but died
		// before advancing. Advancing now completes that run.
		schedule.NextDate = domain.CatchUp(period, schedule.Frequency, schedule.Interval, today)
		if schedule.EndDate != nil && schedule.NextDate.After(*schedule.EndDate) {
			schedule.Active = false
		}
		schedule.UpdatedAt = now
		return s.repo.Update(ctx, tx, schedule)
	})
	if err != nil {
		return outcomeSkipped, invoicedomain.Invoice{}, err
	}
	return outcome, generated, nil
}

func (s *Service) clientExists(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(`SELECT COUNT(*) FROM clients WHERE id = ?`, id).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, id snowflake.ID, previous, current any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: auditdomain.EntitySchedule,
		EntityID:   id,
		Action:     action,
		Previous:   previous,
		Current:    current,
	}); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) emitInvoiceAudit(ctx context.Context, invoice invoicedomain.Invoice) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: auditdomain.EntityInvoice,
		EntityID:   invoice.ID,
		Action:     auditdomain.ActionGenerated,
		Current:    invoice,
	}); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", auditdomain.ActionGenerated), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validateItems(items []invoicedomain.ItemInput) error {
	if len(items) == 0 {
		return domain.ErrInvalidItems
	}
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return domain.ErrInvalidItems
		}
		if item.Quantity < 0 || item.UnitRate < 0 {
			return domain.ErrInvalidItems
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
