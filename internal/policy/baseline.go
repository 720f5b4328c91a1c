package policy

import (
	"github.com/h2labs/hevsup/internal/domain"
)

// Defaults for the charge-sustaining baseline.
const (
	DefaultTargetSOC   = 0.60
	DefaultSOCDeadBand = 0.05
	DefaultSOCGain     = 2.0
	DefaultFCRatedW    = 10000.0
	DefaultH2Reserve   = 0.10
)

// ChargeSustainConfig tunes the baseline split law.
type ChargeSustainConfig struct {
	// TargetSOC is the center of the sustained charge band.
	TargetSOC float64

	// DeadBand is the half-width of the band; inside it no SOC correction
	// is applied.
	DeadBand float64

	// Gain converts SOC error beyond the band into split correction.
	Gain float64

	// FCRatedW is the rated fuel-cell power the split is expressed
	// against.
	FCRatedW float64

	// H2Reserve tapers the split linearly to zero as the hydrogen level
	// falls from this fraction to empty.
	H2Reserve float64

	// Dim is the output dimension; axes beyond the first stay zero.
	Dim int
}

// ChargeSustain is the deterministic baseline policy: it follows the traction
// load and steers the battery toward the target charge band. It implements
// ports.BaselinePolicy and is stateless.
type ChargeSustain struct {
	cfg ChargeSustainConfig
}

// NewChargeSustain fills zero config fields from the defaults and validates
// the result.
func NewChargeSustain(cfg ChargeSustainConfig) (*ChargeSustain, error) {
	if cfg.TargetSOC == 0 {
		cfg.TargetSOC = DefaultTargetSOC
	}
	if cfg.DeadBand == 0 {
		cfg.DeadBand = DefaultSOCDeadBand
	}
	if cfg.Gain == 0 {
		cfg.Gain = DefaultSOCGain
	}
	if cfg.FCRatedW == 0 {
		cfg.FCRatedW = DefaultFCRatedW
	}
	if cfg.H2Reserve == 0 {
		cfg.H2Reserve = DefaultH2Reserve
	}
	if cfg.Dim == 0 {
		cfg.Dim = 1
	}

	if cfg.TargetSOC <= 0 || cfg.TargetSOC >= 1 ||
		cfg.DeadBand < 0 || cfg.DeadBand >= cfg.TargetSOC ||
		cfg.Gain < 0 || cfg.FCRatedW <= 0 ||
		cfg.H2Reserve < 0 || cfg.H2Reserve > 1 ||
		cfg.Dim < 1 {
		return nil, domain.ErrInvalidConfig
	}
	return &ChargeSustain{cfg: cfg}, nil
}

// Compute returns the baseline control vector for the snapshot. Axis 0 is the
// fuel-cell split: load following plus SOC band correction, tapered when
// hydrogen runs into the reserve, clamped to [0, 1]. Without applied
// telemetry the split stays zero.
func (p *ChargeSustain) Compute(s domain.VehicleState) (domain.ControlVector, error) {
	out := domain.ZeroVector(p.cfg.Dim)
	if s.StateVersion == 0 {
		return out, nil
	}

	split := s.Readings.LoadPower / p.cfg.FCRatedW

	socErr := p.cfg.TargetSOC - s.Readings.SOC
	switch {
	case socErr > p.cfg.DeadBand:
		split += p.cfg.Gain * (socErr - p.cfg.DeadBand)
	case socErr < -p.cfg.DeadBand:
		split += p.cfg.Gain * (socErr + p.cfg.DeadBand)
	}

	if h2 := s.Readings.H2Level; p.cfg.H2Reserve > 0 && h2 < p.cfg.H2Reserve {
		split *= h2 / p.cfg.H2Reserve
	}

	if split < 0 {
		split = 0
	}
	if split > 1 {
		split = 1
	}
	out[0] = split
	return out, nil
}
