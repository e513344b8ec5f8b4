package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesCreated    metric.Int64Counter
	invoiceTransitions metric.Int64Counter
	paymentsRecorded   metric.Int64Counter
	paymentAmount      metric.Int64Counter
	recurringGenerated metric.Int64Counter
	pdfRendered        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "factura"
	}
	meter := provider.Meter(name)

	invoicesCreated, err := meter.Int64Counter("factura_invoices_created_total")
	if err != nil {
		return nil, err
	}
	invoiceTransitions, err := meter.Int64Counter("factura_invoice_transitions_total")
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("factura_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	paymentAmount, err := meter.Int64Counter("factura_payment_amount_cents_total")
	if err != nil {
		return nil, err
	}
	recurringGenerated, err := meter.Int64Counter("factura_recurring_generated_total")
	if err != nil {
		return nil, err
	}
	pdfRendered, err := meter.Int64Counter("factura_pdf_rendered_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicesCreated:    invoicesCreated,
		invoiceTransitions: invoiceTransitions,
		paymentsRecorded:   paymentsRecorded,
		paymentAmount:      paymentAmount,
		recurringGenerated: recurringGenerated,
		pdfRendered:        pdfRendered,
	}, nil
}

// RecordInvoiceCreated increments invoice creation counts.
func (m *Metrics) RecordInvoiceCreated(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInvoiceTransition increments status transition counts.
func (m *Metrics) RecordInvoiceTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.invoiceTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment increments payment counts and applied amount.
func (m *Metrics) RecordPayment(ctx context.Context, method string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amount > 0 {
		m.paymentAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
	}
}

// RecordRecurringGenerated increments generated invoice counts per schedule run.
func (m *Metrics) RecordRecurringGenerated(ctx context.Context, frequency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("frequency", strings.TrimSpace(frequency)))
	m.recurringGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPDFRendered increments rendered document counts.
func (m *Metrics) RecordPDFRendered(ctx context.Context) {
	if m == nil {
		return
	}
	m.pdfRendered.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":      {},
	"from":        {},
	"to":          {},
	"method":      {},
	"frequency":   {},
	"status_code": {},
	"endpoint":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
