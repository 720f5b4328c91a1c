// Package policy holds the built-in baseline and adjustment policies, the
// hot-swap holder the loop reads them through, and the model file watcher.
package policy

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/h2labs/hevsup/internal/domain"
)

// modelSchemaVersion is the supported model file version.
const modelSchemaVersion = 1

// featureCount is the number of state-derived features; the full feature
// vector is these followed by the baseline axes.
const featureCount = 5

// Model is the learned adjustment artifact, produced offline by the training
// pipeline and loaded from JSON.
type Model struct {
	// Version must equal modelSchemaVersion.
	Version int `json:"version"`

	// Weights holds one row per output axis; each row spans the feature
	// vector (featureCount state features plus one per output axis).
	Weights [][]float64 `json:"weights"`

	// Bias is the per-axis offset.
	Bias []float64 `json:"bias"`

	// Bound caps the absolute correction per axis.
	Bound []float64 `json:"bound"`

	// Confidence scales the whole correction, (0, 1].
	Confidence float64 `json:"confidence"`

	// LoadNorm is the wattage the load features are divided by.
	LoadNorm float64 `json:"load_norm"`

	// Smoothing blends each output with the previous tick's, 0..1.
	// Zero passes the raw correction through.
	Smoothing float64 `json:"smoothing"`
}

// Dim returns the model's output dimension.
func (m Model) Dim() int {
	return len(m.Weights)
}

// Validate checks the model for structural and numeric soundness.
func (m Model) Validate() error {
	if m.Version != modelSchemaVersion {
		return fmt.Errorf("model version %d: %w", m.Version, domain.ErrInvalidConfig)
	}
	out := len(m.Weights)
	if out == 0 {
		return fmt.Errorf("model has no output axes: %w", domain.ErrInvalidConfig)
	}
	if len(m.Bias) != out || len(m.Bound) != out {
		return fmt.Errorf("model bias/bound length mismatch: %w", domain.ErrInvalidConfig)
	}
	want := featureCount + out
	for i, row := range m.Weights {
		if len(row) != want {
			return fmt.Errorf("model weight row %d has %d entries, want %d: %w",
				i, len(row), want, domain.ErrInvalidConfig)
		}
		for _, v := range row {
			if !finite(v) {
				return fmt.Errorf("model weight row %d not finite: %w", i, domain.ErrInvalidConfig)
			}
		}
	}
	for i := range m.Bias {
		if !finite(m.Bias[i]) || !finite(m.Bound[i]) || m.Bound[i] < 0 {
			return fmt.Errorf("model bias/bound axis %d invalid: %w", i, domain.ErrInvalidConfig)
		}
	}
	if !finite(m.Confidence) || m.Confidence <= 0 || m.Confidence > 1 {
		return fmt.Errorf("model confidence %v: %w", m.Confidence, domain.ErrInvalidConfig)
	}
	if !finite(m.LoadNorm) || m.LoadNorm <= 0 {
		return fmt.Errorf("model load_norm %v: %w", m.LoadNorm, domain.ErrInvalidConfig)
	}
	if !finite(m.Smoothing) || m.Smoothing < 0 || m.Smoothing > 1 {
		return fmt.Errorf("model smoothing %v: %w", m.Smoothing, domain.ErrInvalidConfig)
	}
	return nil
}

// LoadModel reads and validates a model file.
func LoadModel(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Model{}, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// LinearAdjustment computes a bounded linear correction over the vehicle
// state and the baseline command. It implements ports.AdjustmentPolicy.
// Output smoothing makes it stateful; the loop goroutine is its only caller.
type LinearAdjustment struct {
	model   Model
	lastOut []float64
}

// NewLinearAdjustment validates the model and wraps it as a policy. The
// smoothing history starts at zero, so early outputs ramp in.
func NewLinearAdjustment(m Model) (*LinearAdjustment, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &LinearAdjustment{
		model:   m,
		lastOut: make([]float64, m.Dim()),
	}, nil
}

// Model returns the model the policy was built from.
func (p *LinearAdjustment) Model() Model {
	return p.model
}

// Compute returns the per-axis correction for this tick: a linear map over
// the features, scaled by model confidence, clamped to the per-axis bound,
// then blended with the previous output when smoothing is configured.
func (p *LinearAdjustment) Compute(s domain.VehicleState, baseline domain.ControlVector) (domain.ControlVector, error) {
	if len(baseline) != p.model.Dim() {
		return nil, domain.ErrVectorDimension
	}
	if s.StateVersion == 0 {
		return domain.ZeroVector(p.model.Dim()), nil
	}

	f := p.features(s, baseline)
	out := make(domain.ControlVector, p.model.Dim())
	for i, row := range p.model.Weights {
		v := p.model.Bias[i]
		for j, w := range row {
			v += w * f[j]
		}
		v *= p.model.Confidence
		if b := p.model.Bound[i]; v > b {
			v = b
		} else if v < -b {
			v = -b
		}
		if sf := p.model.Smoothing; sf > 0 {
			v = p.lastOut[i]*(1-sf) + v*sf
		}
		p.lastOut[i] = v
		out[i] = v
	}
	return out, nil
}

func (p *LinearAdjustment) features(s domain.VehicleState, baseline domain.ControlVector) []float64 {
	f := make([]float64, 0, featureCount+len(baseline))
	f = append(f,
		s.Readings.SOC,
		s.SOCTrend,
		s.Readings.LoadPower/p.model.LoadNorm,
		s.LoadTrend/p.model.LoadNorm,
		s.Readings.H2Level,
	)
	f = append(f, baseline...)
	return f
}

// Zero is the adjustment in effect when no learned model is configured or
// loaded. It never corrects anything.
type Zero struct{}

// Compute returns a zero vector matching the baseline's dimension.
func (Zero) Compute(_ domain.VehicleState, baseline domain.ControlVector) (domain.ControlVector, error) {
	return domain.ZeroVector(len(baseline)), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
