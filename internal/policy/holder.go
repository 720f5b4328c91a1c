package policy

import (
	"sync/atomic"

	"github.com/h2labs/hevsup/internal/ports"
)

// holderBox wraps the interface so the atomic.Value always stores a single
// concrete type.
type holderBox struct {
	p ports.AdjustmentPolicy
}

// Holder publishes the active adjustment policy to the loop. The loop loads
// it once at the top of each tick, so a swap lands between ticks and a tick
// never sees two policies.
type Holder struct {
	v atomic.Value
}

// NewHolder creates a holder. A nil policy installs Zero.
func NewHolder(p ports.AdjustmentPolicy) *Holder {
	h := &Holder{}
	h.Swap(p)
	return h
}

// Load returns the active policy.
func (h *Holder) Load() ports.AdjustmentPolicy {
	return h.v.Load().(holderBox).p
}

// Swap installs a new policy. A nil policy installs Zero.
func (h *Holder) Swap(p ports.AdjustmentPolicy) {
	if p == nil {
		p = Zero{}
	}
	h.v.Store(holderBox{p: p})
}
