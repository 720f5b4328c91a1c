package domain

// ControlVector is an ordered set of actuator setpoints. Axis meaning is
// configuration-defined; axis 0 is conventionally the fuel-cell power
// fraction (share of rated fuel-cell output, 0..1).
type ControlVector []float64

// ZeroVector returns a vector of n zeroed axes.
func ZeroVector(n int) ControlVector {
	return make(ControlVector, n)
}

// Clone returns an independent copy of the vector.
func (v ControlVector) Clone() ControlVector {
	out := make(ControlVector, len(v))
	copy(out, v)
	return out
}

// Add returns v + w. Returns ErrVectorDimension if lengths differ.
func (v ControlVector) Add(w ControlVector) (ControlVector, error) {
	if len(v) != len(w) {
		return nil, ErrVectorDimension
	}
	out := make(ControlVector, len(v))
	for i := range v {
		out[i] = v[i] + w[i]
	}
	return out, nil
}

// Scale returns v with every axis multiplied by k.
func (v ControlVector) Scale(k float64) ControlVector {
	out := make(ControlVector, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

// Envelope is the per-axis actuator safety envelope. Arbitrated commands are
// clamped into [Min[i], Max[i]] before they reach the link.
type Envelope struct {
	Min []float64
	Max []float64
}

// Dim returns the number of axes covered by the envelope.
func (e Envelope) Dim() int {
	return len(e.Min)
}

// Validate checks that the envelope is well formed and contains the given
// fail-safe vector.
func (e Envelope) Validate(failSafe ControlVector) error {
	if len(e.Min) == 0 || len(e.Min) != len(e.Max) {
		return ErrInvalidConfig
	}
	if len(failSafe) != len(e.Min) {
		return ErrVectorDimension
	}
	for i := range e.Min {
		if e.Min[i] > e.Max[i] {
			return ErrInvalidConfig
		}
		if failSafe[i] < e.Min[i] || failSafe[i] > e.Max[i] {
			return ErrInvalidConfig
		}
	}
	return nil
}

// Clamp returns v with every axis limited to the envelope. A clamped axis
// takes exactly the bound it violated. Axes beyond the envelope's dimension
// are truncated; missing axes are filled with the lower bound.
func (e Envelope) Clamp(v ControlVector) ControlVector {
	out := make(ControlVector, len(e.Min))
	for i := range out {
		x := e.Min[i]
		if i < len(v) {
			x = v[i]
		}
		if x < e.Min[i] {
			x = e.Min[i]
		}
		if x > e.Max[i] {
			x = e.Max[i]
		}
		out[i] = x
	}
	return out
}
