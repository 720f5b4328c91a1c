// Package arbiter merges the baseline and adjustment policy outputs into one
// envelope-clamped command according to the health mode.
package arbiter

import (
	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// DefaultWarnScale is the factor applied to the adjustment under WARNING.
const DefaultWarnScale = 0.5

// Config holds the safety envelope, the fail-safe vector asserted when the
// link is down, and the WARNING adjustment scale.
type Config struct {
	Envelope domain.Envelope
	FailSafe domain.ControlVector

	// WarnScale is how much of the adjustment survives under WARNING.
	// Zero selects DefaultWarnScale.
	WarnScale float64
}

// Decision is the arbitrated outcome for one tick.
type Decision struct {
	// Command is the vector to apply. It is always inside the envelope.
	Command domain.ControlVector

	// Sendable reports whether the command may be transmitted. When false
	// the vector is the fail-safe state, asserted locally only.
	Sendable bool

	// Mode is the health status the decision was made under.
	Mode domain.HealthStatus
}

// Arbiter computes per-tick decisions. Stateless apart from configuration.
type Arbiter struct {
	cfg    Config
	logger ports.Logger
}

// New validates the envelope against the fail-safe vector and returns an
// arbiter.
func New(cfg Config, logger ports.Logger) (*Arbiter, error) {
	if cfg.WarnScale == 0 {
		cfg.WarnScale = DefaultWarnScale
	}
	if cfg.WarnScale < 0 || cfg.WarnScale > 1 {
		return nil, domain.ErrInvalidConfig
	}
	if err := cfg.Envelope.Validate(cfg.FailSafe); err != nil {
		return nil, err
	}
	return &Arbiter{cfg: cfg, logger: logger}, nil
}

// Decide produces the command for one tick.
//
// NOMINAL passes baseline plus adjustment; WARNING scales the adjustment
// down first; CRITICAL discards the adjustment and flies on baseline alone.
// With the link down nothing is transmitted: the fail-safe vector is
// asserted locally and Sendable is false. Every returned command is clamped
// to the envelope.
func (a *Arbiter) Decide(baseline, adjustment domain.ControlVector, report domain.HealthReport, link domain.LinkState) Decision {
	if link == domain.LinkDown {
		return Decision{
			Command:  a.cfg.FailSafe.Clone(),
			Sendable: false,
			Mode:     report.Status,
		}
	}

	switch report.Status {
	case domain.HealthCritical:
		return Decision{
			Command:  a.cfg.Envelope.Clamp(baseline),
			Sendable: true,
			Mode:     report.Status,
		}
	case domain.HealthWarning:
		adjustment = adjustment.Scale(a.cfg.WarnScale)
	}

	sum, err := baseline.Add(adjustment)
	if err != nil {
		a.logger.Warn("adjustment dimension mismatch, discarded",
			ports.Int("baseline_dim", len(baseline)),
			ports.Int("adjustment_dim", len(adjustment)),
		)
		sum = baseline
	}
	return Decision{
		Command:  a.cfg.Envelope.Clamp(sum),
		Sendable: true,
		Mode:     report.Status,
	}
}
