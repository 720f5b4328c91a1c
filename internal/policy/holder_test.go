package policy

import "testing"

func TestHolder_SwapVisibleToLoad(t *testing.T) {
	h := NewHolder(nil)
	if _, ok := h.Load().(Zero); !ok {
		t.Fatalf("empty holder holds %T, want Zero", h.Load())
	}

	adj, err := NewLinearAdjustment(testModel())
	if err != nil {
		t.Fatal(err)
	}
	h.Swap(adj)
	if got, ok := h.Load().(*LinearAdjustment); !ok || got != adj {
		t.Errorf("Load() = %v, want the swapped-in policy", h.Load())
	}

	h.Swap(nil)
	if _, ok := h.Load().(Zero); !ok {
		t.Errorf("Load() after Swap(nil) holds %T, want Zero", h.Load())
	}
}
