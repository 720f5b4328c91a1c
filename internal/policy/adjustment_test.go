package policy

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/h2labs/hevsup/internal/domain"
)

// testModel is one output axis over six features:
// soc, soc trend, load/norm, load trend/norm, h2, baseline.
func testModel() Model {
	return Model{
		Version:    modelSchemaVersion,
		Weights:    [][]float64{{0.1, 0, -0.05, 0, 0, 0.02}},
		Bias:       []float64{0.01},
		Bound:      []float64{0.1},
		Confidence: 1,
		LoadNorm:   10000,
	}
}

// adjustmentState pairs with testModel: soc 0.5, load 8000 W, h2 0.8.
func adjustmentState() domain.VehicleState {
	return domain.VehicleState{
		StateVersion: 1,
		Readings: domain.Readings{
			SOC:       0.5,
			H2Level:   0.8,
			LoadPower: 8000,
		},
	}
}

func TestLinearAdjustment_Compute(t *testing.T) {
	p, err := NewLinearAdjustment(testModel())
	if err != nil {
		t.Fatalf("NewLinearAdjustment() error = %v", err)
	}

	out, err := p.Compute(adjustmentState(), domain.ControlVector{0.5})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	// 0.01 + 0.1*0.5 - 0.05*0.8 + 0.02*0.5 = 0.03
	if math.Abs(out[0]-0.03) > 1e-9 {
		t.Errorf("correction = %v, want 0.03", out[0])
	}
}

func TestLinearAdjustment_BoundClamp(t *testing.T) {
	m := testModel()
	m.Bias = []float64{0.5}
	p, err := NewLinearAdjustment(m)
	if err != nil {
		t.Fatal(err)
	}

	out, err := p.Compute(adjustmentState(), domain.ControlVector{0.5})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0.1 {
		t.Errorf("correction = %v, want exactly the 0.1 bound", out[0])
	}
}

func TestLinearAdjustment_ConfidenceScales(t *testing.T) {
	m := testModel()
	m.Confidence = 0.5
	p, err := NewLinearAdjustment(m)
	if err != nil {
		t.Fatal(err)
	}

	out, err := p.Compute(adjustmentState(), domain.ControlVector{0.5})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out[0]-0.015) > 1e-9 {
		t.Errorf("correction = %v, want 0.015 at half confidence", out[0])
	}
}

func TestLinearAdjustment_SmoothingRampsIn(t *testing.T) {
	m := testModel()
	m.Smoothing = 0.3
	p, err := NewLinearAdjustment(m)
	if err != nil {
		t.Fatal(err)
	}

	st := adjustmentState()
	base := domain.ControlVector{0.5}

	out, err := p.Compute(st, base)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out[0]-0.3*0.03) > 1e-9 {
		t.Errorf("first correction = %v, want %v (smoothed from zero)", out[0], 0.3*0.03)
	}

	out, err = p.Compute(st, base)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.7*(0.3*0.03) + 0.3*0.03
	if math.Abs(out[0]-want) > 1e-9 {
		t.Errorf("second correction = %v, want %v", out[0], want)
	}
}

func TestLinearAdjustment_DimensionMismatch(t *testing.T) {
	p, err := NewLinearAdjustment(testModel())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Compute(adjustmentState(), domain.ControlVector{0.5, 0.5}); !errors.Is(err, domain.ErrVectorDimension) {
		t.Errorf("Compute() error = %v, want ErrVectorDimension", err)
	}
}

func TestLinearAdjustment_NoTelemetryIsZero(t *testing.T) {
	p, err := NewLinearAdjustment(testModel())
	if err != nil {
		t.Fatal(err)
	}

	out, err := p.Compute(domain.VehicleState{}, domain.ControlVector{0.5})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 {
		t.Errorf("correction without telemetry = %v, want 0", out[0])
	}
}

func TestZero_MatchesBaselineDimension(t *testing.T) {
	out, err := Zero{}.Compute(adjustmentState(), domain.ControlVector{0.4, 0.2, 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("dim = %d, want 3", len(out))
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("axis %d = %v, want 0", i, v)
		}
	}
}

func TestModel_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
	}{
		{"wrong version", func(m *Model) { m.Version = 2 }},
		{"no axes", func(m *Model) { m.Weights = nil }},
		{"short weight row", func(m *Model) { m.Weights = [][]float64{{0.1, 0.2}} }},
		{"bias length", func(m *Model) { m.Bias = []float64{0.1, 0.2} }},
		{"negative bound", func(m *Model) { m.Bound = []float64{-0.1} }},
		{"nan weight", func(m *Model) { m.Weights[0][0] = math.NaN() }},
		{"zero confidence", func(m *Model) { m.Confidence = 0 }},
		{"confidence above one", func(m *Model) { m.Confidence = 1.5 }},
		{"zero load norm", func(m *Model) { m.LoadNorm = 0 }},
		{"smoothing above one", func(m *Model) { m.Smoothing = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModel()
			tt.mutate(&m)
			if err := m.Validate(); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	good := `{
		"version": 1,
		"weights": [[0.1, 0, -0.05, 0, 0, 0.02]],
		"bias": [0.01],
		"bound": [0.1],
		"confidence": 0.9,
		"load_norm": 10000,
		"smoothing": 0.3
	}`
	if err := os.WriteFile(path, []byte(good), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if m.Dim() != 1 || m.Confidence != 0.9 || m.Smoothing != 0.3 {
		t.Errorf("loaded model = %+v", m)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(path); err == nil {
		t.Error("LoadModel() accepted malformed JSON")
	}

	if _, err := LoadModel(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("LoadModel() accepted a missing file")
	}
}
