package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/h2labs/hevsup/internal/arbiter"
	"github.com/h2labs/hevsup/internal/codec"
	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/health"
	"github.com/h2labs/hevsup/internal/link"
	"github.com/h2labs/hevsup/internal/policy"
	"github.com/h2labs/hevsup/internal/ports"
	"github.com/h2labs/hevsup/internal/recorder"
	"github.com/h2labs/hevsup/internal/state"
)

// Default loop timing values.
const (
	DefaultTickPeriod    = 100 * time.Millisecond
	DefaultPolicyBudget  = 20 * time.Millisecond
	DefaultReceiveBudget = 4096
)

// LoopConfig contains configuration for the supervisory loop.
type LoopConfig struct {
	// TickPeriod is the fixed control period.
	TickPeriod time.Duration

	// PolicyBudget bounds the policy stage of each tick. A policy that
	// returns past the deadline has its output discarded for that tick.
	PolicyBudget time.Duration

	// ReceiveBudget is the maximum number of transport bytes drained per
	// tick.
	ReceiveBudget int

	// FailSafe substitutes for the baseline when the baseline policy fails.
	// Must lie inside the arbiter's envelope.
	FailSafe domain.ControlVector

	// MaxTicks stops the loop after that many ticks. Zero runs until the
	// context is canceled. Used for soak runs.
	MaxTicks uint64
}

// Deps bundles the collaborators the loop drives each tick.
type Deps struct {
	Transport ports.Transport
	Session   *link.Session
	State     *state.Manager
	Health    *health.Monitor
	Arbiter   *arbiter.Arbiter
	Baseline  ports.BaselinePolicy
	Adjust    *policy.Holder
	Recorder  *recorder.Recorder
	Logger    ports.Logger
	Emitter   DecisionEventEmitter
}

// DecisionEventEmitter is called after each tick's arbitration and whenever
// the link classification changes. Calls come from the loop goroutine;
// implementations must return quickly.
type DecisionEventEmitter interface {
	OnDecision(tickID uint64, command domain.ControlVector, sent bool, status domain.HealthStatus)
	OnLinkChange(previous, current domain.LinkState)
}

// LoopStats counts loop activity since start.
type LoopStats struct {
	Ticks         uint64
	CorruptFrames uint64
	Dispatched    uint64
	PolicyFaults  uint64
	TickOverruns  uint64
}

// Loop runs the fixed-period supervisory cycle: drain and decode telemetry,
// advance the link, compute and arbitrate the command, dispatch, record.
// All control-path work happens on the Run goroutine.
type Loop struct {
	cfg  LoopConfig
	deps Deps

	rxBuf    []byte
	overrun  bool
	lastLink domain.LinkState

	ticks         atomic.Uint64
	corruptFrames atomic.Uint64
	dispatched    atomic.Uint64
	policyFaults  atomic.Uint64
	tickOverruns  atomic.Uint64
}

// NewLoop creates the supervisory loop, filling zero config fields from the
// defaults.
func NewLoop(cfg LoopConfig, deps Deps) *Loop {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.PolicyBudget <= 0 {
		cfg.PolicyBudget = DefaultPolicyBudget
	}
	if cfg.ReceiveBudget <= 0 {
		cfg.ReceiveBudget = DefaultReceiveBudget
	}
	return &Loop{cfg: cfg, deps: deps}
}

// Run executes the control cycle until the context is canceled or MaxTicks
// is reached. A cancellation observed mid-tick takes effect after the tick
// completes; no tick is left half-applied.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.tick(now)
			if l.cfg.MaxTicks > 0 && l.ticks.Load() >= l.cfg.MaxTicks {
				l.deps.Logger.Info("tick limit reached",
					ports.Uint64("ticks", l.ticks.Load()))
				return nil
			}
		}
	}
}

// Stats returns a snapshot of the loop counters. Safe to call concurrently
// with Run.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Ticks:         l.ticks.Load(),
		CorruptFrames: l.corruptFrames.Load(),
		Dispatched:    l.dispatched.Load(),
		PolicyFaults:  l.policyFaults.Load(),
		TickOverruns:  l.tickOverruns.Load(),
	}
}

// tick runs one full control cycle.
func (l *Loop) tick(now time.Time) {
	start := time.Now()
	tickID := l.ticks.Add(1)

	l.drain()
	l.decode(now)
	l.deps.Session.Tick(now)

	snap := l.deps.State.Snapshot()

	var policyFaults []domain.FaultCode
	policyDeadline := start.Add(l.cfg.PolicyBudget)

	baseline, fault := l.computeBaseline(snap, policyDeadline)
	adjustment := domain.ZeroVector(len(baseline))
	if fault != "" {
		// The substituted posture is not something the adjustment model was
		// fitted around; it stays zero for the tick.
		policyFaults = append(policyFaults, fault)
	} else if adj, fault := l.computeAdjustment(snap, baseline, policyDeadline); fault != "" {
		policyFaults = append(policyFaults, fault)
	} else {
		adjustment = adj
	}

	linkStatus := l.deps.Session.Status()
	if l.deps.Emitter != nil && linkStatus.State != l.lastLink {
		l.deps.Emitter.OnLinkChange(l.lastLink, linkStatus.State)
	}
	l.lastLink = linkStatus.State

	report := l.deps.Health.Evaluate(health.Inputs{
		Snapshot:     snap,
		Link:         linkStatus,
		PolicyFaults: policyFaults,
		TickOverrun:  l.overrun,
		Now:          now,
	})
	l.overrun = false

	decision := l.deps.Arbiter.Decide(baseline, adjustment, report, linkStatus.State)

	sent := false
	if decision.Sendable {
		if _, err := l.deps.Session.Dispatch(decision.Command, now); err != nil {
			if !errors.Is(err, domain.ErrLinkDown) {
				l.deps.Logger.Error("dispatch failed", ports.Err(err))
			}
		} else {
			sent = true
			l.dispatched.Add(1)
		}
	}

	l.deps.Recorder.Record(domain.DecisionRecord{
		TickID:     tickID,
		WallTime:   now,
		State:      snap,
		Baseline:   baseline,
		Adjustment: adjustment,
		Command:    decision.Command,
		Sent:       sent,
		Health:     report,
	})

	if l.deps.Emitter != nil {
		l.deps.Emitter.OnDecision(tickID, decision.Command, sent, report.Status)
	}

	if elapsed := time.Since(start); elapsed > l.cfg.TickPeriod {
		l.tickOverruns.Add(1)
		l.overrun = true
		l.deps.Logger.Warn("tick overran its period",
			ports.Uint64("tick", tickID),
			ports.Duration("elapsed", elapsed),
			ports.Duration("period", l.cfg.TickPeriod),
		)
	}
}

// drain pulls available transport bytes into the receive buffer. The byte
// budget and the transport's own poll bound keep transport latency from
// eating the tick deadline.
func (l *Loop) drain() {
	chunk, err := l.deps.Transport.TryReceive(l.cfg.ReceiveBudget)
	if err != nil {
		if !errors.Is(err, domain.ErrTransportClosed) {
			l.deps.Logger.Error("receive failed", ports.Err(err))
		}
		return
	}
	l.rxBuf = append(l.rxBuf, chunk...)
}

// decode consumes the receive buffer frame by frame. Valid frames feed the
// link session first (handshake, acks) and then the state manager; corrupt
// stretches are discarded to the next resynchronization point.
func (l *Loop) decode(now time.Time) {
	for len(l.rxBuf) > 0 {
		res := codec.Decode(l.rxBuf)
		switch res.Status {
		case codec.DecodeOk:
			l.rxBuf = l.rxBuf[res.Consumed:]
			ev := l.deps.Session.HandleTelemetry(res.Frame, now)
			if ev.Handshake {
				l.deps.State.ResetOrdering()
			}
			// Ordering and plausibility rejects are counted by the manager.
			_ = l.deps.State.Apply(res.Frame, now)
		case codec.DecodeCorrupt:
			l.rxBuf = l.rxBuf[res.Discard:]
			l.corruptFrames.Add(1)
			l.deps.Logger.Debug("corrupt input discarded",
				ports.Int("bytes", res.Discard))
		default:
			// Incomplete: wait for more bytes next tick.
			return
		}
	}
	l.rxBuf = nil
}

// computeBaseline runs the baseline policy. On failure or a missed deadline
// the configured fail-safe posture substitutes for this tick.
func (l *Loop) computeBaseline(snap domain.VehicleState, deadline time.Time) (domain.ControlVector, domain.FaultCode) {
	out, late, err := l.guardPolicy("baseline", deadline, func() (domain.ControlVector, error) {
		return l.deps.Baseline.Compute(snap)
	})
	if err != nil {
		l.policyFaults.Add(1)
		l.deps.Logger.Error("baseline policy failed", ports.Err(err))
		return l.cfg.FailSafe.Clone(), domain.FaultPolicyFailure
	}
	if late {
		l.policyFaults.Add(1)
		l.deps.Logger.Warn("baseline policy missed its deadline",
			ports.Duration("budget", l.cfg.PolicyBudget))
		return l.cfg.FailSafe.Clone(), domain.FaultPolicyTimeout
	}
	return out, ""
}

// computeAdjustment runs the adjustment policy. On failure or a missed
// deadline the correction is zero for this tick.
func (l *Loop) computeAdjustment(snap domain.VehicleState, baseline domain.ControlVector, deadline time.Time) (domain.ControlVector, domain.FaultCode) {
	out, late, err := l.guardPolicy("adjustment", deadline, func() (domain.ControlVector, error) {
		return l.deps.Adjust.Load().Compute(snap, baseline)
	})
	if err != nil {
		l.policyFaults.Add(1)
		l.deps.Logger.Error("adjustment policy failed", ports.Err(err))
		return domain.ZeroVector(len(baseline)), domain.FaultPolicyFailure
	}
	if late {
		l.policyFaults.Add(1)
		l.deps.Logger.Warn("adjustment policy missed its deadline",
			ports.Duration("budget", l.cfg.PolicyBudget))
		return domain.ZeroVector(len(baseline)), domain.FaultPolicyTimeout
	}
	return out, ""
}

// guardPolicy invokes one policy, converting a panic into an error and
// flagging a missed deadline. Policies cannot be preempted mid-call; the
// deadline is enforced on return.
func (l *Loop) guardPolicy(name string, deadline time.Time, fn func() (domain.ControlVector, error)) (out domain.ControlVector, late bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s policy panicked: %v", name, r)
		}
	}()
	out, err = fn()
	if err == nil && time.Now().After(deadline) {
		late = true
	}
	return out, late, err
}
