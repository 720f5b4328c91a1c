// Package health classifies each tick as NOMINAL, WARNING or CRITICAL from
// the vehicle snapshot, the link status and the loop's own fault signals.
// Classification is level-triggered: every tick is judged fresh from current
// conditions, nothing latches.
package health

import (
	"math"
	"time"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// Default threshold values.
const (
	DefaultSOCLowCrit     = 0.15
	DefaultSOCLowWarn     = 0.25
	DefaultSOCHighWarn    = 0.90
	DefaultSOCHighCrit    = 0.95
	DefaultVoltageLow     = 20.0  // volts
	DefaultVoltageHigh    = 28.0  // volts
	DefaultCurrentHigh    = 50.0  // amps, either direction
	DefaultCurrentRateMax = 100.0 // amps per second
	DefaultTempWarn       = 45.0  // degrees Celsius
	DefaultTempCrit       = 60.0  // degrees Celsius
	DefaultH2LowWarn      = 0.20
	DefaultH2LowCrit      = 0.10
	DefaultStaleAfter     = 2 * time.Second
)

// Thresholds holds the sensor limits the monitor checks each tick. Zero
// fields fall back to the defaults.
type Thresholds struct {
	SOCLowCrit     float64
	SOCLowWarn     float64
	SOCHighWarn    float64
	SOCHighCrit    float64
	VoltageLow     float64
	VoltageHigh    float64
	CurrentHigh    float64
	CurrentRateMax float64
	TempWarn       float64
	TempCrit       float64
	H2LowWarn      float64
	H2LowCrit      float64
	StaleAfter     time.Duration
}

func (t Thresholds) withDefaults() Thresholds {
	if t.SOCLowCrit == 0 {
		t.SOCLowCrit = DefaultSOCLowCrit
	}
	if t.SOCLowWarn == 0 {
		t.SOCLowWarn = DefaultSOCLowWarn
	}
	if t.SOCHighWarn == 0 {
		t.SOCHighWarn = DefaultSOCHighWarn
	}
	if t.SOCHighCrit == 0 {
		t.SOCHighCrit = DefaultSOCHighCrit
	}
	if t.VoltageLow == 0 {
		t.VoltageLow = DefaultVoltageLow
	}
	if t.VoltageHigh == 0 {
		t.VoltageHigh = DefaultVoltageHigh
	}
	if t.CurrentHigh == 0 {
		t.CurrentHigh = DefaultCurrentHigh
	}
	if t.CurrentRateMax == 0 {
		t.CurrentRateMax = DefaultCurrentRateMax
	}
	if t.TempWarn == 0 {
		t.TempWarn = DefaultTempWarn
	}
	if t.TempCrit == 0 {
		t.TempCrit = DefaultTempCrit
	}
	if t.H2LowWarn == 0 {
		t.H2LowWarn = DefaultH2LowWarn
	}
	if t.H2LowCrit == 0 {
		t.H2LowCrit = DefaultH2LowCrit
	}
	if t.StaleAfter == 0 {
		t.StaleAfter = DefaultStaleAfter
	}
	return t
}

// Inputs carries everything one evaluation looks at. PolicyFaults are the
// policy-stage faults the loop raised this tick; TickOverrun reports that the
// previous tick ran past its period.
type Inputs struct {
	Snapshot     domain.VehicleState
	Link         domain.LinkStatus
	PolicyFaults []domain.FaultCode
	TickOverrun  bool
	Now          time.Time
}

// Monitor evaluates health once per tick. It keeps the previous pack-current
// sample for the rate-of-change check. Not safe for concurrent use; the
// supervisory loop owns it.
type Monitor struct {
	cfg    Thresholds
	logger ports.Logger

	lastVersion uint64
	lastCurrent float64
	lastAt      time.Time
	lastStatus  domain.HealthStatus
}

// NewMonitor creates a monitor with the given thresholds, filling zero fields
// from the defaults.
func NewMonitor(cfg Thresholds, logger ports.Logger) *Monitor {
	return &Monitor{cfg: cfg.withDefaults(), logger: logger}
}

// Evaluate classifies the current tick. The status is the worst severity
// among the active faults; with no faults it is NOMINAL.
func (m *Monitor) Evaluate(in Inputs) domain.HealthReport {
	var faults []domain.FaultCode
	worst := domain.HealthNominal

	add := func(code domain.FaultCode, sev domain.HealthStatus) {
		faults = append(faults, code)
		if sev > worst {
			worst = sev
		}
	}

	snap := in.Snapshot
	if !snap.Fresh(in.Now, m.cfg.StaleAfter) {
		// Stale readings are not judged against sensor limits; the
		// staleness itself is the fault.
		add(domain.FaultTelemetryStale, domain.HealthCritical)
	} else {
		r := snap.Readings
		switch {
		case r.SOC < m.cfg.SOCLowCrit:
			add(domain.FaultSOCLowCrit, domain.HealthCritical)
		case r.SOC < m.cfg.SOCLowWarn:
			add(domain.FaultSOCLowWarn, domain.HealthWarning)
		case r.SOC > m.cfg.SOCHighCrit:
			add(domain.FaultSOCHighCrit, domain.HealthCritical)
		case r.SOC > m.cfg.SOCHighWarn:
			add(domain.FaultSOCHighWarn, domain.HealthWarning)
		}

		if r.PackVoltage < m.cfg.VoltageLow {
			add(domain.FaultVoltageLow, domain.HealthCritical)
		}
		if r.PackVoltage > m.cfg.VoltageHigh {
			add(domain.FaultVoltageHigh, domain.HealthCritical)
		}

		if math.Abs(r.PackCurrent) > m.cfg.CurrentHigh {
			add(domain.FaultCurrentHigh, domain.HealthWarning)
		}

		switch {
		case r.PackTemp >= m.cfg.TempCrit:
			add(domain.FaultTempCrit, domain.HealthCritical)
		case r.PackTemp >= m.cfg.TempWarn:
			add(domain.FaultTempWarn, domain.HealthWarning)
		}

		switch {
		case r.H2Level < m.cfg.H2LowCrit:
			add(domain.FaultH2LowCrit, domain.HealthCritical)
		case r.H2Level < m.cfg.H2LowWarn:
			add(domain.FaultH2LowWarn, domain.HealthWarning)
		}

		if snap.StateVersion != m.lastVersion {
			if m.lastVersion > 0 {
				dt := snap.ReceivedAt.Sub(m.lastAt).Seconds()
				if dt > 0 {
					rate := math.Abs(r.PackCurrent-m.lastCurrent) / dt
					if rate > m.cfg.CurrentRateMax {
						add(domain.FaultCurrentRate, domain.HealthWarning)
					}
				}
			}
			m.lastVersion = snap.StateVersion
			m.lastCurrent = r.PackCurrent
			m.lastAt = snap.ReceivedAt
		}
	}

	switch in.Link.State {
	case domain.LinkDown:
		add(domain.FaultLinkDown, domain.HealthCritical)
	case domain.LinkDegraded:
		add(domain.FaultLinkDegraded, domain.HealthWarning)
	}

	for _, code := range in.PolicyFaults {
		add(code, domain.HealthWarning)
	}
	if in.TickOverrun {
		add(domain.FaultTickOverrun, domain.HealthWarning)
	}

	if worst != m.lastStatus {
		m.logger.Info("health transition",
			ports.String("from", m.lastStatus.String()),
			ports.String("to", worst.String()),
			ports.Any("faults", faults),
		)
		m.lastStatus = worst
	}
	return domain.HealthReport{Status: worst, Faults: faults}
}
