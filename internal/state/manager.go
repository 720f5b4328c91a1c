// Package state owns the authoritative vehicle snapshot. Telemetry frames
// pass an ordering and plausibility filter before they mutate it; readers
// always get a self-consistent copy.
package state

import (
	"math"
	"sync"
	"time"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// Defaults for the telemetry filter.
const (
	// DefaultSeqWindow is how far ahead of the last applied frame a
	// sequence number may be and still count as in-order. Anything at or
	// beyond the window is stale or a regression.
	DefaultSeqWindow = 1024

	// DefaultTrendSmoothing is the exponential smoothing factor applied to
	// per-frame reading deltas.
	DefaultTrendSmoothing = 0.3
)

// Plausibility bounds for raw sensor values. Frames with a reading outside
// these are rejected without touching the snapshot.
const (
	maxPlausibleVoltage = 60.0     // volts
	maxPlausibleCurrent = 400.0    // amps, either direction
	minPlausibleTemp    = -40.0    // degrees Celsius
	maxPlausibleTemp    = 150.0    // degrees Celsius
	maxPlausiblePower   = 200000.0 // watts, fuel cell or load
)

// Config controls the telemetry filter.
type Config struct {
	// SeqWindow overrides DefaultSeqWindow when positive.
	SeqWindow int

	// TrendSmoothing overrides DefaultTrendSmoothing when positive.
	TrendSmoothing float64
}

// Stats counts filter outcomes since startup.
type Stats struct {
	Applied     uint64
	Duplicates  uint64
	OutOfOrder  uint64
	Implausible uint64
}

// Manager applies in-order telemetry to the vehicle snapshot and serves
// copies of it. All methods are safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	logger ports.Logger

	cur    domain.VehicleState
	synced bool
	stats  Stats
}

// NewManager creates a manager with an empty snapshot. The first applied
// frame is accepted regardless of its sequence number.
func NewManager(cfg Config, logger ports.Logger) *Manager {
	if cfg.SeqWindow <= 0 {
		cfg.SeqWindow = DefaultSeqWindow
	}
	if cfg.TrendSmoothing <= 0 {
		cfg.TrendSmoothing = DefaultTrendSmoothing
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Apply validates one telemetry frame against the ordering window and the
// plausibility bounds, then folds it into the snapshot. Rejected frames leave
// the snapshot untouched and return one of ErrDuplicateTelemetry,
// ErrOutOfOrderTelemetry or ErrImplausibleReading.
func (m *Manager) Apply(frame domain.TelemetryFrame, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.synced {
		delta := frame.Seq - m.cur.Seq
		switch {
		case delta == 0:
			m.stats.Duplicates++
			m.logger.Debug("duplicate telemetry frame",
				ports.Uint64("seq", uint64(frame.Seq)),
			)
			return domain.ErrDuplicateTelemetry
		case int(delta) >= m.cfg.SeqWindow:
			m.stats.OutOfOrder++
			m.logger.Debug("out-of-order telemetry frame",
				ports.Uint64("seq", uint64(frame.Seq)),
				ports.Uint64("last_seq", uint64(m.cur.Seq)),
			)
			return domain.ErrOutOfOrderTelemetry
		}
	}

	if field, ok := plausible(frame.Readings); !ok {
		m.stats.Implausible++
		m.logger.Warn("implausible telemetry rejected",
			ports.Uint64("seq", uint64(frame.Seq)),
			ports.String("field", field),
		)
		return domain.ErrImplausibleReading
	}

	prev := m.cur
	next := domain.VehicleState{
		Seq:          frame.Seq,
		TimestampMs:  frame.TimestampMs,
		ReceivedAt:   now,
		Readings:     frame.Readings,
		StateVersion: prev.StateVersion + 1,
	}
	if m.synced && prev.StateVersion > 0 {
		alpha := m.cfg.TrendSmoothing
		next.SOCTrend = alpha*(frame.Readings.SOC-prev.Readings.SOC) + (1-alpha)*prev.SOCTrend
		next.LoadTrend = alpha*(frame.Readings.LoadPower-prev.Readings.LoadPower) + (1-alpha)*prev.LoadTrend
	}
	m.cur = next
	m.synced = true
	m.stats.Applied++
	return nil
}

// Snapshot returns a copy of the current vehicle state.
func (m *Manager) Snapshot() domain.VehicleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// ResetOrdering makes the next frame acceptable regardless of its sequence
// number. The supervisor calls it after a link recovery handshake, when the
// controller may have rebooted and restarted its counter. Trends restart from
// zero because deltas across the gap are meaningless; the state version keeps
// counting.
func (m *Manager) ResetOrdering() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = false
}

// Stats returns a copy of the filter counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// plausible checks every reading against its physical bounds and reports the
// first offending field.
func plausible(r domain.Readings) (string, bool) {
	checks := []struct {
		field  string
		v      float64
		lo, hi float64
	}{
		{"soc", r.SOC, 0, 1},
		{"pack_voltage", r.PackVoltage, 0, maxPlausibleVoltage},
		{"pack_current", r.PackCurrent, -maxPlausibleCurrent, maxPlausibleCurrent},
		{"pack_temp", r.PackTemp, minPlausibleTemp, maxPlausibleTemp},
		{"h2_level", r.H2Level, 0, 1},
		{"fc_power", r.FuelCellPower, 0, maxPlausiblePower},
		{"load_power", r.LoadPower, -maxPlausiblePower, maxPlausiblePower},
		{"driver_demand", r.DriverDemand, -1, 1},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v < c.lo || c.v > c.hi {
			return c.field, false
		}
	}
	return "", true
}
