package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/factura/internal/auditcontext"
	"github.com/smallbiznis/factura/internal/clock"
	obsmetrics "github.com/smallbiznis/factura/internal/observability/metrics"
	recurringdomain "github.com/smallbiznis/factura/internal/recurring/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Recurring recurringdomain.Service
	Config    Config `optional:"true"`
}

// Scheduler drives recurring invoice generation on a ticker.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	recurring recurringdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Recurring == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		recurring: p.Recurring,
	}, nil
}

// RunOnce executes one generation pass.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "recurring_invoices", func(ctx context.Context) error {
		report, err := s.recurring.RunDue(ctx)
		obsmetrics.Scheduler().ObserveGenerated("recurring_invoices", report.Generated)
		if report.Generated > 0 || report.Deactivated > 0 {
			s.log.Info("recurring run finished",
				zap.Int("examined", report.Examined),
				zap.Int("generated", report.Generated),
				zap.Int("deactivated", report.Deactivated),
			)
		}
		return err
	})
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = auditcontext.WithSource(ctx, auditcontext.SourceScheduler)

	err := fn(ctx)
	obsmetrics.Scheduler().ObserveJobRun(name, time.Since(start), err)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			obsmetrics.Scheduler().ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
