package link

import (
	"testing"
	"time"
)

func TestBackoff_GrowthAndCap(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 400*time.Millisecond)

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
	}
	for i, base := range expected {
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		d := b.Next()
		if d < lo || d > hi {
			t.Errorf("Next() #%d = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 2*time.Second)

	b.Next()
	b.Next()
	if b.Current() == 100*time.Millisecond {
		t.Fatal("backoff did not advance")
	}

	b.Reset()
	if got := b.Current(); got != 100*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 100ms", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := newBackoff(0, 0)
	if b.initial != DefaultBackoffInitial {
		t.Errorf("initial = %v, want %v", b.initial, DefaultBackoffInitial)
	}
	if b.max != DefaultBackoffInitial {
		t.Errorf("max = %v, want initial when below it", b.max)
	}
}
