package observability

import (
	"context"
	"fmt"

	"careerscope/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Manager owns the OpenTelemetry meter provider and the optional Prometheus
// scrape server.
type Manager struct {
	cfg           config.ObservabilityConfig
	meterProvider *sdkmetric.MeterProvider
	metrics       *Metrics
	shutdownFuncs []func(context.Context) error
}

// Metrics holds the custom instruments. All recording methods are safe on a
// nil receiver or uninitialized instruments, so callers never guard.
type Metrics struct {
	// Notification channel metrics
	PushMessages     metric.Int64Counter
	PushDropped      metric.Int64Counter
	PollAttempts     metric.Int64Counter
	PollFailures     metric.Int64Counter
	AgentUpdates     metric.Int64Counter
	Completions      metric.Int64Counter
	DuplicateResults metric.Int64Counter
	FailedRuns       metric.Int64Counter

	// Wizard metrics
	StageTransitions metric.Int64Counter
}

// NewManager sets up the meter provider with a Prometheus reader when
// enabled. A disabled manager still returns usable (no-op) metrics.
func NewManager(cfg config.ObservabilityConfig, version string) (*Manager, error) {
	m := &Manager{cfg: cfg}
	if !cfg.Enabled {
		m.metrics = &Metrics{}
		return m, nil
	}

	serviceVersion := cfg.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	reader, mux, err := SetupPrometheusExporter(cfg.Prometheus)
	if err != nil {
		return nil, err
	}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
		if err := StartPrometheusServer(mux, cfg.Prometheus.Port); err != nil {
			return nil, err
		}
	} else {
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewManualReader()))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	if err := m.initCustomMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) initCustomMetrics() error {
	meter := m.meterProvider.Meter(m.cfg.ServiceName)
	m.metrics = &Metrics{}

	instruments := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.metrics.PushMessages, "careerscope_push_messages_total", "Push channel messages received, by type"},
		{&m.metrics.PushDropped, "careerscope_push_messages_dropped_total", "Malformed push messages dropped"},
		{&m.metrics.PollAttempts, "careerscope_poll_attempts_total", "Results poll attempts"},
		{&m.metrics.PollFailures, "careerscope_poll_failures_total", "Failed results poll attempts"},
		{&m.metrics.AgentUpdates, "careerscope_agent_updates_total", "Agent status updates applied, by source channel"},
		{&m.metrics.Completions, "careerscope_completions_total", "Analysis completions applied, by winning channel"},
		{&m.metrics.DuplicateResults, "careerscope_duplicate_results_total", "Completion deliveries discarded as duplicates"},
		{&m.metrics.FailedRuns, "careerscope_failed_runs_total", "Analysis runs that ended in failure"},
		{&m.metrics.StageTransitions, "careerscope_stage_transitions_total", "Wizard stage transitions, by kind"},
	}

	for _, inst := range instruments {
		counter, err := meter.Int64Counter(inst.name, metric.WithDescription(inst.description))
		if err != nil {
			return fmt.Errorf("failed to create metric %s: %w", inst.name, err)
		}
		*inst.target = counter
	}
	return nil
}

// GetMetrics returns the metrics instance, never nil.
func (m *Manager) GetMetrics() *Metrics {
	if m == nil || m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// Shutdown flushes and stops all observability components.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) PushMessageReceived(msgType string) {
	if m == nil || m.PushMessages == nil {
		return
	}
	m.PushMessages.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("type", msgType)))
}

func (m *Metrics) PushMessageDropped() {
	if m == nil || m.PushDropped == nil {
		return
	}
	m.PushDropped.Add(context.Background(), 1)
}

func (m *Metrics) PollAttempt() {
	if m == nil || m.PollAttempts == nil {
		return
	}
	m.PollAttempts.Add(context.Background(), 1)
}

func (m *Metrics) PollFailure() {
	if m == nil || m.PollFailures == nil {
		return
	}
	m.PollFailures.Add(context.Background(), 1)
}

func (m *Metrics) AgentUpdateApplied(source string) {
	if m == nil || m.AgentUpdates == nil {
		return
	}
	m.AgentUpdates.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) CompletionApplied(source string) {
	if m == nil || m.Completions == nil {
		return
	}
	m.Completions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) CompletionDuplicate(source string) {
	if m == nil || m.DuplicateResults == nil {
		return
	}
	m.DuplicateResults.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RunFailed() {
	if m == nil || m.FailedRuns == nil {
		return
	}
	m.FailedRuns.Add(context.Background(), 1)
}

func (m *Metrics) WizardTransition(kind string) {
	if m == nil || m.StageTransitions == nil {
		return
	}
	m.StageTransitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind)))
}
