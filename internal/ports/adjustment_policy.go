package ports

import "github.com/h2labs/hevsup/internal/domain"

// AdjustmentPolicy is the learned correction layered atop the baseline.
// Implementations are pure functions and may be hot-swapped between ticks
// (never mid-tick) when an updated model is loaded.
type AdjustmentPolicy interface {
	// Compute derives a correction vector from the snapshot and the baseline
	// output. An error is treated as a zero correction for that tick only.
	Compute(state domain.VehicleState, baseline domain.ControlVector) (domain.ControlVector, error)
}
