package hevsup

import (
	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// Logger is the interface for structured logging. Field keys and values are
// exposed on [LogField] so custom implementations can format them.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// VehicleState is the authoritative powertrain snapshot handed to policies.
type VehicleState = domain.VehicleState

// Readings is the sensor block of a vehicle snapshot.
type Readings = domain.Readings

// ControlVector is a per-axis control command.
type ControlVector = domain.ControlVector

// Transport exchanges opaque frame bytes with the MCU. Implement it to run
// the supervisor over a medium the built-in adapters do not cover.
type Transport = ports.Transport

// BaselinePolicy is the deterministic control law.
type BaselinePolicy = ports.BaselinePolicy

// AdjustmentPolicy is the learned correction layered atop the baseline.
type AdjustmentPolicy = ports.AdjustmentPolicy

// Option configures optional behavior of the Supervisor.
type Option func(*options)

// options holds the optional configuration for a Supervisor instance.
type options struct {
	logger       ports.Logger
	transport    ports.Transport
	baseline     ports.BaselinePolicy
	adjustment   ports.AdjustmentPolicy
	eventHandler EventHandler
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: &noopLogger{},
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport sets a custom MCU transport, overriding Config.Transport.
// The supervisor takes ownership and closes it on Stop().
func WithTransport(transport Transport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithBaselinePolicy replaces the built-in charge-sustaining baseline.
func WithBaselinePolicy(baseline BaselinePolicy) Option {
	return func(o *options) {
		o.baseline = baseline
	}
}

// WithAdjustmentPolicy installs the initial adjustment policy. A model
// loaded from Config.ModelPath replaces it once the file loads.
func WithAdjustmentPolicy(adjustment AdjustmentPolicy) Option {
	return func(o *options) {
		o.adjustment = adjustment
	}
}

// WithEventHandler sets a handler for supervisor events.
// Events are called synchronously from supervisor goroutines.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
