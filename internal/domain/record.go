package domain

import "time"

// DecisionRecord is one tick's state/decision/health tuple, the unit written
// by the data recorder. Immutable once constructed.
type DecisionRecord struct {
	// TickID is the supervisory loop's tick counter
	TickID uint64

	// WallTime is the host time at which the tick ran
	WallTime time.Time

	// State is the snapshot the decision was computed from
	State VehicleState

	// Baseline is the baseline policy output
	Baseline ControlVector

	// Adjustment is the adjustment policy output actually applied
	Adjustment ControlVector

	// Command is the arbitrated command (fail-safe vector when not sent)
	Command ControlVector

	// Sent reports whether the command was handed to the link session
	Sent bool

	// Health is the tick's health report
	Health HealthReport
}

// RecordLine is the stable serialized schema for a DecisionRecord. The layout
// is append-only and consumed by offline analysis and training tooling, so
// field keys must not change meaning between releases.
type RecordLine struct {
	Tick         uint64    `json:"tick"`
	TimeMs       int64     `json:"time_ms"`
	StateVersion uint64    `json:"state_version"`
	Seq          uint16    `json:"seq"`
	SOC          float64   `json:"soc"`
	Voltage      float64   `json:"voltage_v"`
	Current      float64   `json:"current_a"`
	Temp         float64   `json:"temp_c"`
	H2Level      float64   `json:"h2_level"`
	FCPower      float64   `json:"fc_power_w"`
	LoadPower    float64   `json:"load_power_w"`
	DriverDemand float64   `json:"driver_demand"`
	MotorRPM     []uint16  `json:"motor_rpm"`
	SOCTrend     float64   `json:"soc_trend"`
	LoadTrend    float64   `json:"load_trend"`
	Baseline     []float64 `json:"baseline"`
	Adjustment   []float64 `json:"adjustment"`
	Command      []float64 `json:"command"`
	Sent         bool      `json:"sent"`
	Health       string    `json:"health"`
	Faults       []string  `json:"faults"`
}

// ToLine converts a DecisionRecord to its serialized schema.
func (r DecisionRecord) ToLine() RecordLine {
	rpm := make([]uint16, MotorCount)
	copy(rpm, r.State.Readings.MotorRPM[:])

	faults := make([]string, len(r.Health.Faults))
	for i, f := range r.Health.Faults {
		faults[i] = string(f)
	}

	return RecordLine{
		Tick:         r.TickID,
		TimeMs:       r.WallTime.UnixMilli(),
		StateVersion: r.State.StateVersion,
		Seq:          r.State.Seq,
		SOC:          r.State.Readings.SOC,
		Voltage:      r.State.Readings.PackVoltage,
		Current:      r.State.Readings.PackCurrent,
		Temp:         r.State.Readings.PackTemp,
		H2Level:      r.State.Readings.H2Level,
		FCPower:      r.State.Readings.FuelCellPower,
		LoadPower:    r.State.Readings.LoadPower,
		DriverDemand: r.State.Readings.DriverDemand,
		MotorRPM:     rpm,
		SOCTrend:     r.State.SOCTrend,
		LoadTrend:    r.State.LoadTrend,
		Baseline:     r.Baseline,
		Adjustment:   r.Adjustment,
		Command:      r.Command,
		Sent:         r.Sent,
		Health:       r.Health.Status.String(),
		Faults:       faults,
	}
}
