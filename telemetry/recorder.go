// Package telemetry emits cmdmetrics observations as OpenTelemetry metrics:
// one histogram per metric name tagged with command, collection and status,
// plus optional observable gauges over listener state.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nvasko/cmdmetrics"
	"github.com/nvasko/cmdmetrics/core"
)

// OTelRecorder implements cmdmetrics.Recorder on top of OpenTelemetry.
type OTelRecorder struct {
	instruments *Instruments
	logger      core.Logger
}

// RecorderOption customizes an OTelRecorder.
type RecorderOption func(*recorderSettings)

type recorderSettings struct {
	provider metric.MeterProvider
	logger   core.Logger
}

// WithMeterProvider uses the given provider instead of the global one.
func WithMeterProvider(provider metric.MeterProvider) RecorderOption {
	return func(s *recorderSettings) {
		if provider != nil {
			s.provider = provider
		}
	}
}

// WithRecorderLogger sets the logger for instrument-creation failures.
func WithRecorderLogger(logger core.Logger) RecorderOption {
	return func(s *recorderSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewOTelRecorder creates a recorder whose instruments live on the named
// meter. With no options it uses the global meter provider and stays silent
// about emission problems.
func NewOTelRecorder(meterName string, opts ...RecorderOption) *OTelRecorder {
	settings := &recorderSettings{
		provider: otel.GetMeterProvider(),
		logger:   &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(settings)
	}
	return &OTelRecorder{
		instruments: NewInstruments(settings.provider.Meter(meterName)),
		logger:      settings.logger,
	}
}

// Record emits one timed command as a histogram sample in milliseconds.
func (r *OTelRecorder) Record(ctx context.Context, obs cmdmetrics.Observation) {
	err := r.instruments.RecordHistogram(ctx, obs.Metric, obs.Description,
		float64(obs.Elapsed)/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String("command", obs.Command),
			attribute.String("collection", obs.Collection),
			attribute.String("status", obs.Status),
		))
	if err != nil {
		r.logger.Error("Failed to record command observation", map[string]interface{}{
			"metric": obs.Metric,
			"error":  err.Error(),
		})
	}
}

// RegisterInFlightGauge exposes the listener's current cache occupancy as an
// observable gauge.
func (r *OTelRecorder) RegisterInFlightGauge(name string, size func() int) error {
	return r.instruments.RegisterGauge(name, "Commands started but not yet completed", func() int64 {
		return int64(size())
	})
}

// Shutdown unregisters all gauges owned by this recorder.
func (r *OTelRecorder) Shutdown() error {
	return r.instruments.Shutdown()
}
