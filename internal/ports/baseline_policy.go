package ports

import "github.com/h2labs/hevsup/internal/domain"

// BaselinePolicy is the deterministic control law. Implementations must be
// pure functions of the snapshot: no retained references, no I/O on the
// compute path, and a return well inside the tick deadline.
type BaselinePolicy interface {
	// Compute derives the baseline control vector from a state snapshot.
	// An error is treated as a zero vector for that tick only.
	Compute(state domain.VehicleState) (domain.ControlVector, error)
}
