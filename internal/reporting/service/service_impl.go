package service

import (
	"context"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	"github.com/smallbiznis/factura/internal/clock"
	"github.com/smallbiznis/factura/internal/config"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/reporting/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Reporting *config.ReportingConfigHolder
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	reporting *config.ReportingConfigHolder
	audit     auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("reporting.service"),
		clock:     p.Clock,
		reporting: p.Reporting,
		audit:     p.Audit,
	}
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	counts, err := s.StatusBreakdown(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}

	var dashboard domain.Dashboard
	dashboard.StatusCounts = counts
	for _, c := range counts {
		switch c.Status {
		case string(invoicedomain.StatusSent):
			dashboard.OutstandingTotal += c.Balance
		case string(invoicedomain.StatusOverdue):
			dashboard.OutstandingTotal += c.Balance
			dashboard.OverdueTotal += c.Balance
		}
	}

	now := s.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE payment_date >= ? AND payment_date < ?`,
		monthStart,
		monthStart.AddDate(0, 1, 0),
	).Scan(&dashboard.RevenueThisMonth).Error
	if err != nil {
		return domain.Dashboard{}, err
	}

	err = s.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM clients`).Scan(&dashboard.ActiveClients).Error
	if err != nil {
		return domain.Dashboard{}, err
	}

	activity, err := s.audit.List(ctx, auditdomain.ListActivityRequest{
		Pagination: pagination.Pagination{PageSize: 10},
	})
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.RecentActivity = activity.Activities
	return dashboard, nil
}

func (s *Service) Revenue(ctx context.Context, req domain.RevenueRequest) ([]domain.RevenuePoint, error) {
	now := s.clock.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	to := now
	if req.From != nil {
		from = *req.From
	}
	if req.To != nil {
		to = *req.To
	}
	if to.Before(from) {
		return nil, domain.ErrInvalidRange
	}

	query := fmt.Sprintf(
		`SELECT %s AS period, COALESCE(SUM(amount), 0) AS amount
		 FROM payments
		 WHERE payment_date >= ? AND payment_date <= ?
		 GROUP BY period
		 ORDER BY period ASC`,
		s.monthExpr("payment_date"),
	)

	var points []domain.RevenuePoint
	if err := s.db.WithContext(ctx).Raw(query, from, to).Scan(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Service) ClientTotals(ctx context.Context) ([]domain.ClientTotal, error) {
	var totals []domain.ClientTotal
	err := s.db.WithContext(ctx).Raw(
		`SELECT c.id AS client_id, c.name AS client_name,
		        COUNT(i.id) AS invoices,
		        COALESCE(SUM(i.total), 0) AS invoiced,
		        COALESCE(SUM(i.amount_paid), 0) AS paid,
		        COALESCE(SUM(CASE WHEN i.status = 'sent' THEN i.balance_due ELSE 0 END), 0) AS outstanding
		 FROM clients c
		 LEFT JOIN invoices i ON i.client_id = c.id AND i.status <> 'cancelled'
		 GROUP BY c.id, c.name
		 ORDER BY invoiced DESC`,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *Service) StatusBreakdown(ctx context.Context) ([]domain.StatusCount, error) {
	today := dateOnly(s.clock.Now())

	var counts []domain.StatusCount
	err := s.db.WithContext(ctx).Raw(
		`SELECT CASE WHEN status = 'sent' AND due_date < ? AND balance_due > 0 THEN 'overdue' ELSE status END AS status,
		        COUNT(*) AS count,
		        COALESCE(SUM(total), 0) AS total,
		        COALESCE(SUM(balance_due), 0) AS balance
		 FROM invoices
		 GROUP BY 1
		 ORDER BY 1`,
		today,
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Service) Aging(ctx context.Context) (domain.AgingReport, error) {
	today := dateOnly(s.clock.Now())

	var rows []struct {
		DueDate    time.Time
		BalanceDue int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT due_date, balance_due FROM invoices
		 WHERE status = 'sent' AND due_date < ? AND balance_due > 0`,
		today,
	).Scan(&rows).Error
	if err != nil {
		return domain.AgingReport{}, err
	}

	buckets := s.reporting.Get().AgingBuckets
	report := domain.AgingReport{AsOf: today, Buckets: make([]domain.AgingBucketTotal, len(buckets))}
	for i, b := range buckets {
		report.Buckets[i].Label = b.Label
	}

	for _, row := range rows {
		days := int(today.Sub(dateOnly(row.DueDate)).Hours() / 24)
		for i, b := range buckets {
			if days < b.MinDays {
				continue
			}
			if b.MaxDays != nil && days > *b.MaxDays {
				continue
			}
			report.Buckets[i].Count++
			report.Buckets[i].Balance += row.BalanceDue
			report.Total += row.BalanceDue
			break
		}
	}
	return report, nil
}

// monthExpr yields the calendar-month grouping expression for the
// connected dialect.
func (s *Service) monthExpr(column string) string {
	switch s.db.Dialector.Name() {
	case "postgres":
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	case "mysql":
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m')", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
