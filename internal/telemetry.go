// Package internal contains the telemetry utilities shared by
// all the components of the library.
package internal

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/FerroO2000/framering"

var logLevel = new(slog.LevelVar)

// SetLogLevel sets the minimum level of the console logger
// used by every component.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

var consoleHandler = newConsoleHandler()

func newConsoleHandler() slog.Handler {
	noColor := !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd())

	return tint.NewHandler(colorable.NewColorableStderr(), &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}

// Telemetry groups the logger, the meter and the tracer of a component.
type Telemetry struct {
	kind string
	name string

	logger *slog.Logger
	meter  metric.Meter
	tracer trace.Tracer

	attrs attribute.Set

	observations    []observation
	registrationMux sync.Mutex
	registration    metric.Registration
}

type observation struct {
	instrument metric.Int64Observable
	callback   func() int64
}

// NewTelemetry returns a new telemetry for the component of the given kind and name.
// It uses the global OpenTelemetry meter/tracer providers.
func NewTelemetry(kind, name string) *Telemetry {
	return newTelemetry(kind, name, consoleHandler, otel.GetMeterProvider(), otel.GetTracerProvider())
}

func newTelemetry(
	kind, name string, handler slog.Handler, meterProvider metric.MeterProvider, tracerProvider trace.TracerProvider,
) *Telemetry {
	bridge := otelslog.NewHandler(scopeName)

	logger := slog.New(&fanoutHandler{handlers: []slog.Handler{handler, bridge}}).
		With("component_kind", kind, "component_name", name)

	return &Telemetry{
		kind: kind,
		name: name,

		logger: logger,
		meter:  meterProvider.Meter(scopeName),
		tracer: tracerProvider.Tracer(scopeName),

		attrs: attribute.NewSet(
			attribute.String("component_kind", kind),
			attribute.String("component_name", name),
		),
	}
}

// LogDebug logs a debug message.
func (t *Telemetry) LogDebug(msg string, args ...any) {
	t.logger.Debug(msg, args...)
}

// LogInfo logs an info message.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.logger.Info(msg, args...)
}

// LogWarn logs a warning message.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.logger.Warn(msg, args...)
}

// LogError logs an error message with the given error attached.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// NewCounter adds an observable counter.
// The callback is called on every collection once [Telemetry.RegisterMetrics]
// is called, and it must be safe for concurrent use.
func (t *Telemetry) NewCounter(name string, callback func() int64) {
	counter, err := t.meter.Int64ObservableCounter(name)
	if err != nil {
		t.LogError("failed to create counter", err, "counter", name)
		return
	}

	t.observations = append(t.observations, observation{instrument: counter, callback: callback})
}

// NewGauge adds an observable gauge.
// The callback is called on every collection once [Telemetry.RegisterMetrics]
// is called, and it must be safe for concurrent use.
func (t *Telemetry) NewGauge(name string, callback func() int64) {
	gauge, err := t.meter.Int64ObservableGauge(name)
	if err != nil {
		t.LogError("failed to create gauge", err, "gauge", name)
		return
	}

	t.observations = append(t.observations, observation{instrument: gauge, callback: callback})
}

// RegisterMetrics registers a single callback observing all the counters
// and gauges added so far. The meter keeps a reference to the callbacks
// until [Telemetry.UnregisterMetrics] is called.
func (t *Telemetry) RegisterMetrics() {
	if len(t.observations) == 0 {
		return
	}

	observations := t.observations
	attrs := metric.WithAttributeSet(t.attrs)

	instruments := make([]metric.Observable, 0, len(observations))
	for _, obs := range observations {
		instruments = append(instruments, obs.instrument)
	}

	registration, err := t.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, obs := range observations {
			o.ObserveInt64(obs.instrument, obs.callback(), attrs)
		}
		return nil
	}, instruments...)

	if err != nil {
		t.LogError("failed to register metrics", err)
		return
	}

	t.registrationMux.Lock()
	t.registration = registration
	t.registrationMux.Unlock()
}

// UnregisterMetrics stops the observation of the metrics.
// It is safe to call it more than once.
func (t *Telemetry) UnregisterMetrics() {
	t.registrationMux.Lock()
	registration := t.registration
	t.registration = nil
	t.registrationMux.Unlock()

	if registration == nil {
		return
	}

	if err := registration.Unregister(); err != nil {
		t.LogError("failed to unregister metrics", err)
	}
}

// NewTrace starts a new span.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, trace.WithAttributes(t.attrs.ToSlice()...))
}

// fanoutHandler dispatches every record to all the handlers
// that are enabled for its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}

		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler.WithAttrs(attrs))
	}

	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler.WithGroup(name))
	}

	return &fanoutHandler{handlers: handlers}
}
