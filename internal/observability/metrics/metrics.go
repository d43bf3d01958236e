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
}

// Metrics exposes domain counters. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	ledgerEntries metric.Int64Counter
	activations   metric.Int64Counter
	payments      metric.Int64Counter
	syncRuns      metric.Int64Counter
	syncedUsers   metric.Int64Counter
	webhookEvents metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
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

// New registers the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "creditdesk"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.ledgerEntries, err = meter.Int64Counter("creditdesk_ledger_entries_total"); err != nil {
		return nil, err
	}
	if m.activations, err = meter.Int64Counter("creditdesk_activations_total"); err != nil {
		return nil, err
	}
	if m.payments, err = meter.Int64Counter("creditdesk_payments_recorded_total"); err != nil {
		return nil, err
	}
	if m.syncRuns, err = meter.Int64Counter("creditdesk_directory_sync_runs_total"); err != nil {
		return nil, err
	}
	if m.syncedUsers, err = meter.Int64Counter("creditdesk_directory_synced_users_total"); err != nil {
		return nil, err
	}
	if m.webhookEvents, err = meter.Int64Counter("creditdesk_directory_webhook_events_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordLedgerEntry counts an appended ledger entry by sign and source.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, delta int64, source string) {
	if m == nil {
		return
	}
	direction := "credit"
	if delta < 0 {
		direction = "debit"
	}
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("direction", direction),
		attribute.String("source", strings.TrimSpace(source)),
	)...))
}

// RecordActivation counts activation attempts by result (activated, conflict, error).
func (m *Metrics) RecordActivation(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.activations.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("result", strings.TrimSpace(result)),
	)...))
}

// RecordPayment counts a recorded payment by source.
func (m *Metrics) RecordPayment(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
	)...))
}

// RecordSync counts a reconciliation run and the users it created or updated.
func (m *Metrics) RecordSync(ctx context.Context, result string, created, updated int) {
	if m == nil {
		return
	}
	m.syncRuns.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("result", strings.TrimSpace(result)),
	)...))
	if created > 0 {
		m.syncedUsers.Add(ctx, int64(created), metric.WithAttributes(attribute.String("outcome", "created")))
	}
	if updated > 0 {
		m.syncedUsers.Add(ctx, int64(updated), metric.WithAttributes(attribute.String("outcome", "updated")))
	}
}

// RecordWebhookEvent counts directory webhook deliveries.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("result", strings.TrimSpace(result)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"direction":  {},
	"source":     {},
	"result":     {},
	"outcome":    {},
	"event_type": {},
	"route":      {},
	"method":     {},
	"status":     {},
}

// FilterAttributes strips labels outside the allow list so user or admin ids
// never end up as metric dimensions.
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
