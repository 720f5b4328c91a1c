package health

import (
	"testing"
	"time"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

func healthySnapshot(now time.Time) domain.VehicleState {
	return domain.VehicleState{
		Seq:          10,
		ReceivedAt:   now,
		StateVersion: 1,
		Readings: domain.Readings{
			SOC:           0.50,
			PackVoltage:   24,
			PackCurrent:   10,
			PackTemp:      30,
			H2Level:       0.80,
			FuelCellPower: 5000,
			LoadPower:     8000,
			DriverDemand:  0.2,
		},
	}
}

func upLink() domain.LinkStatus {
	return domain.LinkStatus{State: domain.LinkUp}
}

func TestMonitor_Nominal(t *testing.T) {
	m := NewMonitor(Thresholds{}, noopLogger{})
	now := time.Now()

	rep := m.Evaluate(Inputs{Snapshot: healthySnapshot(now), Link: upLink(), Now: now})
	if rep.Status != domain.HealthNominal {
		t.Errorf("Status = %v, want NOMINAL", rep.Status)
	}
	if len(rep.Faults) != 0 {
		t.Errorf("Faults = %v, want none", rep.Faults)
	}
}

func TestMonitor_SensorThresholds(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*domain.Readings)
		wantStatus domain.HealthStatus
		wantFault  domain.FaultCode
	}{
		{"soc low warn", func(r *domain.Readings) { r.SOC = 0.20 }, domain.HealthWarning, domain.FaultSOCLowWarn},
		{"soc low crit", func(r *domain.Readings) { r.SOC = 0.10 }, domain.HealthCritical, domain.FaultSOCLowCrit},
		{"soc high warn", func(r *domain.Readings) { r.SOC = 0.92 }, domain.HealthWarning, domain.FaultSOCHighWarn},
		{"soc high crit", func(r *domain.Readings) { r.SOC = 0.97 }, domain.HealthCritical, domain.FaultSOCHighCrit},
		{"soc at warn bound is clean", func(r *domain.Readings) { r.SOC = 0.25 }, domain.HealthNominal, ""},
		{"voltage low", func(r *domain.Readings) { r.PackVoltage = 19.5 }, domain.HealthCritical, domain.FaultVoltageLow},
		{"voltage high", func(r *domain.Readings) { r.PackVoltage = 28.5 }, domain.HealthCritical, domain.FaultVoltageHigh},
		{"discharge current high", func(r *domain.Readings) { r.PackCurrent = 55 }, domain.HealthWarning, domain.FaultCurrentHigh},
		{"charge current high", func(r *domain.Readings) { r.PackCurrent = -55 }, domain.HealthWarning, domain.FaultCurrentHigh},
		{"temp warn", func(r *domain.Readings) { r.PackTemp = 45 }, domain.HealthWarning, domain.FaultTempWarn},
		{"temp crit", func(r *domain.Readings) { r.PackTemp = 60 }, domain.HealthCritical, domain.FaultTempCrit},
		{"h2 low warn", func(r *domain.Readings) { r.H2Level = 0.15 }, domain.HealthWarning, domain.FaultH2LowWarn},
		{"h2 low crit", func(r *domain.Readings) { r.H2Level = 0.05 }, domain.HealthCritical, domain.FaultH2LowCrit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(Thresholds{}, noopLogger{})
			now := time.Now()
			snap := healthySnapshot(now)
			tt.mutate(&snap.Readings)

			rep := m.Evaluate(Inputs{Snapshot: snap, Link: upLink(), Now: now})
			if rep.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", rep.Status, tt.wantStatus)
			}
			if tt.wantFault != "" && !rep.Has(tt.wantFault) {
				t.Errorf("Faults = %v, want %v active", rep.Faults, tt.wantFault)
			}
			if tt.wantFault == "" && len(rep.Faults) != 0 {
				t.Errorf("Faults = %v, want none", rep.Faults)
			}
		})
	}
}

func TestMonitor_WorstSeverityWins(t *testing.T) {
	m := NewMonitor(Thresholds{}, noopLogger{})
	now := time.Now()
	snap := healthySnapshot(now)
	snap.Readings.SOC = 0.20   // warning
	snap.Readings.PackTemp = 65 // critical

	rep := m.Evaluate(Inputs{Snapshot: snap, Link: upLink(), Now: now})
	if rep.Status != domain.HealthCritical {
		t.Errorf("Status = %v, want CRITICAL", rep.Status)
	}
	if !rep.Has(domain.FaultSOCLowWarn) || !rep.Has(domain.FaultTempCrit) {
		t.Errorf("Faults = %v, want both SOC_LOW_WARN and TEMP_CRIT", rep.Faults)
	}
}

func TestMonitor_StaleTelemetrySkipsSensorChecks(t *testing.T) {
	m := NewMonitor(Thresholds{}, noopLogger{})
	now := time.Now()
	snap := healthySnapshot(now)
	snap.Readings.SOC = 0.05 // would be critical if judged
	snap.ReceivedAt = now.Add(-5 * time.Second)

	rep := m.Evaluate(Inputs{Snapshot: snap, Link: upLink(), Now: now})
	if rep.Status != domain.HealthCritical {
		t.Errorf("Status = %v, want CRITICAL", rep.Status)
	}
	if !rep.Has(domain.FaultTelemetryStale) {
		t.Errorf("Faults = %v, want TELEMETRY_STALE", rep.Faults)
	}
	if rep.Has(domain.FaultSOCLowCrit) {
		t.Error("stale readings were judged against sensor limits")
	}
}

func TestMonitor_NoTelemetryAtBootIsCritical(t *testing.T) {
	m := NewMonitor(Thresholds{}, noopLogger{})
	now := time.Now()

	rep := m.Evaluate(Inputs{Link: domain.LinkStatus{State: domain.LinkDown}, Now: now})
	if rep.Status != domain.HealthCritical {
		t.Errorf("Status = %v, want CRITICAL", rep.Status)
	}
	if !rep.Has(domain.FaultTelemetryStale) || !rep.Has(domain.FaultLinkDown) {
		t.Errorf("Faults = %v, want TELEMETRY_STALE and LINK_DOWN", rep.Faults)
	}
}

func TestMonitor_LinkStates(t *testing.T) {
	tests := []struct {
		name       string
		link       domain.LinkState
		wantStatus domain.HealthStatus
		wantFault  domain.FaultCode
	}{
		{"degraded", domain.LinkDegraded, domain.HealthWarning, domain.FaultLinkDegraded},
		{"down", domain.LinkDown, domain.HealthCritical, domain.FaultLinkDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(Thresholds{}, noopLogger{})
			now := time.Now()

			rep := m.Evaluate(Inputs{
				Snapshot: healthySnapshot(now),
				Link:     domain.LinkStatus{State: tt.link},
				Now:      now,
			})
			if rep.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", rep.Status, tt.wantStatus)
			}
			if !rep.Has(tt.wantFault) {
				t.Errorf("Faults = %v, want %v", rep.Faults, tt.wantFault)
			}
		})
	}
}

func TestMonitor_CurrentRateOfChange(t *testing.T) {
	m := NewMonitor(Thresholds{}, noopLogger{})
	now := time.Now()

	snap := healthySnapshot(now)
	rep := m.Evaluate(Inputs{Snapshot: snap, Link: upLink(), Now: now})
	if rep.Has(domain.FaultCurrentRate) {
		t.Fatal("rate fault with no prior sample")
	}

	// 30 A step in 100 ms: 300 A/s, past the 100 A/s default.
	next := snap
	next.Seq = 11
	next.StateVersion = 2
	next.ReceivedAt = now.Add(100 * time.Millisecond)
	next.Readings.PackCurrent = 40
	rep = m.Evaluate(Inputs{Snapshot: next, Link: upLink(), Now: next.ReceivedAt})
	if !rep.Has(domain.FaultCurrentRate) {
		t.Errorf("Faults = %v, want CURRENT_RATE", rep.Faults)
	}
	if rep.Status != domain.HealthWarning {
		t.Errorf("Status = %v, want WARNING", rep.Status)
	}

	// Re-evaluating the same snapshot does not re-derive a rate.
	rep = m.Evaluate(Inputs{Snapshot: next, Link: upLink(), Now: next.ReceivedAt.Add(10 * time.Millisecond)})
	if rep.Has(domain.FaultCurrentRate) {
		t.Error("rate fault re-raised without a new frame")
	}

	// A gentle change is clean.
	calm := next
	calm.Seq = 12
	calm.StateVersion = 3
	calm.ReceivedAt = next.ReceivedAt.Add(100 * time.Millisecond)
	calm.Readings.PackCurrent = 41
	rep = m.Evaluate(Inputs{Snapshot: calm, Link: upLink(), Now: calm.ReceivedAt})
	if rep.Has(domain.FaultCurrentRate) {
		t.Errorf("Faults = %v, want no CURRENT_RATE", rep.Faults)
	}
}

func TestMonitor_LoopFaultInputs(t *testing.T) {
	m := NewMonitor(Thresholds{}, noopLogger{})
	now := time.Now()

	rep := m.Evaluate(Inputs{
		Snapshot:     healthySnapshot(now),
		Link:         upLink(),
		PolicyFaults: []domain.FaultCode{domain.FaultPolicyTimeout},
		TickOverrun:  true,
		Now:          now,
	})
	if rep.Status != domain.HealthWarning {
		t.Errorf("Status = %v, want WARNING", rep.Status)
	}
	if !rep.Has(domain.FaultPolicyTimeout) || !rep.Has(domain.FaultTickOverrun) {
		t.Errorf("Faults = %v, want POLICY_TIMEOUT and TICK_OVERRUN", rep.Faults)
	}
}

func TestMonitor_CustomThresholds(t *testing.T) {
	m := NewMonitor(Thresholds{TempWarn: 35, TempCrit: 40}, noopLogger{})
	now := time.Now()
	snap := healthySnapshot(now)
	snap.Readings.PackTemp = 37

	rep := m.Evaluate(Inputs{Snapshot: snap, Link: upLink(), Now: now})
	if !rep.Has(domain.FaultTempWarn) {
		t.Errorf("Faults = %v, want TEMP_WARN at a lowered threshold", rep.Faults)
	}
}
