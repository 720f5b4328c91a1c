package domain

import "time"

// VehicleState is the authoritative powertrain snapshot. It is owned
// exclusively by the state manager and mutated only by applying an in-order,
// checksum-valid telemetry frame; every other component holds copies.
type VehicleState struct {
	// Seq is the sequence number of the last applied telemetry frame
	Seq uint16

	// TimestampMs is the controller clock of the last applied frame
	TimestampMs uint32

	// ReceivedAt is the host wall-clock time the frame was applied
	ReceivedAt time.Time

	// Readings is the last applied sensor snapshot
	Readings Readings

	// SOCTrend is the smoothed per-frame change in state of charge
	SOCTrend float64

	// LoadTrend is the smoothed per-frame change in load power (watts)
	LoadTrend float64

	// StateVersion increases exactly once per accepted frame. Zero means no
	// telemetry has been applied yet.
	StateVersion uint64
}

// Fresh reports whether the snapshot has been updated within maxAge of now.
// A snapshot with no applied telemetry is never fresh.
func (s VehicleState) Fresh(now time.Time, maxAge time.Duration) bool {
	if s.StateVersion == 0 {
		return false
	}
	return now.Sub(s.ReceivedAt) <= maxAge
}
