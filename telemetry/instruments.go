package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// Instruments holds cached metric instruments for efficient recording.
// Instruments are created lazily on first use and reused afterwards, so the
// per-command hot path is a map read under an RLock.
type Instruments struct {
	meter      metric.Meter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Registration
	mu         sync.RWMutex
}

// NewInstruments creates an instrument cache on the given meter.
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Registration),
	}
}

// RecordHistogram records a value distribution (like command latencies).
// The description is only applied when the instrument is first created.
func (m *Instruments) RecordHistogram(ctx context.Context, name, description string, value float64, opts ...metric.RecordOption) error {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		// Double-check after acquiring write lock
		if histogram, exists = m.histograms[name]; !exists {
			var err error
			histogram, err = m.meter.Float64Histogram(name,
				metric.WithDescription(description),
				metric.WithUnit("ms"),
			)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create histogram %s: %w", name, err)
			}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.Record(ctx, value, opts...)
	return nil
}

// RegisterGauge registers an observable gauge backed by fn.
func (m *Instruments) RegisterGauge(name, description string, fn func() int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gauges[name]; exists {
		return fmt.Errorf("gauge %s already registered", name)
	}

	gauge, err := m.meter.Int64ObservableGauge(name, metric.WithDescription(description))
	if err != nil {
		return fmt.Errorf("failed to create gauge %s: %w", name, err)
	}

	registration, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, fn())
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register callback for gauge %s: %w", name, err)
	}

	m.gauges[name] = registration
	return nil
}

// UnregisterGauge removes a previously registered gauge callback.
func (m *Instruments) UnregisterGauge(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	registration, exists := m.gauges[name]
	if !exists {
		return fmt.Errorf("gauge %s not found", name)
	}
	if err := registration.Unregister(); err != nil {
		return fmt.Errorf("failed to unregister gauge %s: %w", name, err)
	}
	delete(m.gauges, name)
	return nil
}

// Shutdown unregisters all gauge callbacks.
func (m *Instruments) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, registration := range m.gauges {
		if err := registration.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unregister gauge %s: %w", name, err))
		}
	}
	m.gauges = make(map[string]metric.Registration)

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
