package hevsup

import (
	"context"
	"sync"
	"time"

	"github.com/h2labs/hevsup/internal/adapters/serialport"
	"github.com/h2labs/hevsup/internal/adapters/sim"
	"github.com/h2labs/hevsup/internal/adapters/udp"
	"github.com/h2labs/hevsup/internal/app"
	"github.com/h2labs/hevsup/internal/arbiter"
	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/health"
	"github.com/h2labs/hevsup/internal/link"
	"github.com/h2labs/hevsup/internal/policy"
	"github.com/h2labs/hevsup/internal/ports"
	"github.com/h2labs/hevsup/internal/recorder"
	"github.com/h2labs/hevsup/internal/state"
)

// Supervisor is the embeddable powertrain supervisor.
// Use New() to create an instance, then Start() to begin the control loop.
type Supervisor struct {
	config Config
	opts   options

	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	logger    ports.Logger

	baseline ports.BaselinePolicy
	holder   *policy.Holder
	watcher  *policy.Watcher
	states   *state.Manager
	monitor  *health.Monitor
	arb      *arbiter.Arbiter

	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	transport    ports.Transport
	loop         *app.Loop
	rec          *recorder.Recorder
	done         chan struct{}
	runErr       error
	lastRecStats recorder.Stats
}

// New creates a new Supervisor with the given configuration.
// The instance is created in StateStopped; call Start() to begin the control
// loop. Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Supervisor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	lifecycle := app.NewLifecycle(logger, emitter)

	baseline := o.baseline
	if baseline == nil {
		var err error
		baseline, err = policy.NewChargeSustain(policy.ChargeSustainConfig{
			Dim: len(cfg.EnvelopeMin),
		})
		if err != nil {
			return nil, err
		}
	}

	holder := policy.NewHolder(o.adjustment)
	var watcher *policy.Watcher
	if cfg.ModelPath != "" {
		watcher = policy.NewWatcher(policy.WatcherConfig{Path: cfg.ModelPath}, holder, logger)
	}

	states := state.NewManager(state.Config{SeqWindow: cfg.SeqWindow}, logger)
	monitor := health.NewMonitor(cfg.Health.toInternal(), logger)

	arb, err := arbiter.New(arbiter.Config{
		Envelope:  domain.Envelope{Min: cfg.EnvelopeMin, Max: cfg.EnvelopeMax},
		FailSafe:  domain.ControlVector(cfg.FailSafe),
		WarnScale: cfg.WarnScale,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle,
		emitter:   emitter,
		logger:    logger,
		baseline:  baseline,
		holder:    holder,
		watcher:   watcher,
		states:    states,
		monitor:   monitor,
		arb:       arb,
	}, nil
}

// Start brings up the transport, recorder and model watcher, then begins the
// control loop in the background. Returns immediately after starting the
// loop goroutine. Returns an error if already running or if startup fails.
// The provided context bounds the lifetime of the control loop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	transport, err := s.openTransport()
	if err != nil {
		cancel()
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "transport open failed")
		return err
	}
	s.transport = transport

	rec, err := recorder.New(recorder.Config{
		Dir:               s.config.RecorderDir,
		Format:            s.config.RecorderFormat,
		QueueCap:          s.config.RecorderQueue,
		MaxRecordsPerFile: s.config.RecorderMaxRecords,
	}, s.logger)
	if err != nil {
		_ = transport.Close()
		s.transport = nil
		cancel()
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "recorder start failed")
		return err
	}
	s.rec = rec

	if s.watcher != nil {
		if err := s.watcher.Start(runCtx); err != nil {
			_, _ = rec.Close(recorder.DefaultCloseGrace)
			s.rec = nil
			_ = transport.Close()
			s.transport = nil
			cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "model watcher start failed")
			return err
		}
	}

	now := time.Now()
	session := link.NewSession(link.Config{
		AckWindow:      s.config.AckWindow,
		BackoffInitial: s.config.BackoffInitial,
		BackoffMax:     s.config.BackoffMax,
		RetryLimit:     s.config.RetryLimit,
		QuietPeriod:    s.config.QuietPeriod,
	}, transport, s.logger, now)

	s.loop = app.NewLoop(app.LoopConfig{
		TickPeriod:    s.config.TickPeriod,
		PolicyBudget:  s.config.PolicyBudget,
		ReceiveBudget: s.config.ReceiveBudget,
		FailSafe:      domain.ControlVector(s.config.FailSafe),
		MaxTicks:      s.config.MaxTicks,
	}, app.Deps{
		Transport: transport,
		Session:   session,
		State:     s.states,
		Health:    s.monitor,
		Arbiter:   s.arb,
		Baseline:  s.baseline,
		Adjust:    s.holder,
		Recorder:  rec,
		Logger:    s.logger,
		Emitter:   s.emitter,
	})

	done := make(chan struct{})
	s.done = done
	s.runErr = nil
	loop := s.loop

	s.lifecycle.AddWorker()
	go func() {
		defer s.lifecycle.WorkerDone()
		defer close(done)

		if err := s.lifecycle.TransitionTo(app.StateRunning, "control loop starting"); err != nil {
			s.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := loop.Run(runCtx)

		if err != nil && err != context.Canceled {
			s.logger.Error("control loop error", ports.Err(err))
			s.mu.Lock()
			s.runErr = err
			s.mu.Unlock()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
			s.teardown()
		}
	}()

	return nil
}

// Stop gracefully shuts down the supervisor: the in-flight tick completes,
// the recorder flushes within its grace period, and the transport is closed.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (s *Supervisor) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}

	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	s.teardown()

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Supervisor) Status() State {
	return convertState(s.lifecycle.State())
}

// Done returns a channel closed when the control loop exits, whether by tick
// limit, crash or context cancellation. Callers still Stop() afterwards to
// release the transport and flush the recorder. Valid only after Start().
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Err returns the error that crashed the control loop, or nil.
func (s *Supervisor) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runErr
}

// Stats is a snapshot of the supervisor's counters. Recorder totals survive
// Stop() so a final summary can be printed after shutdown.
type Stats struct {
	Ticks         uint64
	CorruptFrames uint64
	Dispatched    uint64
	PolicyFaults  uint64
	TickOverruns  uint64

	TelemetryApplied     uint64
	TelemetryDuplicates  uint64
	TelemetryOutOfOrder  uint64
	TelemetryImplausible uint64

	RecordsWritten uint64
	RecordsDropped uint64
}

// Stats returns a snapshot of the counters of the current or most recent
// run. Safe to call concurrently from any goroutine.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	loop := s.loop
	rec := s.rec
	recStats := s.lastRecStats
	s.mu.RUnlock()

	var out Stats
	if loop != nil {
		ls := loop.Stats()
		out.Ticks = ls.Ticks
		out.CorruptFrames = ls.CorruptFrames
		out.Dispatched = ls.Dispatched
		out.PolicyFaults = ls.PolicyFaults
		out.TickOverruns = ls.TickOverruns
	}

	ts := s.states.Stats()
	out.TelemetryApplied = ts.Applied
	out.TelemetryDuplicates = ts.Duplicates
	out.TelemetryOutOfOrder = ts.OutOfOrder
	out.TelemetryImplausible = ts.Implausible

	if rec != nil {
		recStats = rec.Stats()
	}
	out.RecordsWritten = recStats.Written
	out.RecordsDropped = recStats.Dropped

	return out
}

// openTransport builds the configured transport unless one was injected.
func (s *Supervisor) openTransport() (ports.Transport, error) {
	if s.opts.transport != nil {
		return s.opts.transport, nil
	}
	switch s.config.Transport {
	case TransportSerial:
		return serialport.Open(serialport.Config{
			Port: s.config.SerialPort,
			Baud: s.config.SerialBaud,
		}, s.logger)
	case TransportUDP:
		return udp.Open(udp.Config{
			Listen: s.config.UDPListen,
			Peer:   s.config.UDPPeer,
		}, s.logger)
	default:
		return sim.New(sim.Config{
			Seed:     s.config.SimSeed,
			PeriodMs: s.config.SimPeriodMs,
		}, s.logger), nil
	}
}

// teardown releases the resources of the current run: the model watcher, the
// recorder (keeping its final totals) and the transport. Idempotent.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	rec := s.rec
	transport := s.transport
	s.rec = nil
	s.transport = nil
	s.mu.Unlock()

	if s.watcher != nil {
		s.watcher.Stop()
	}

	if rec != nil {
		stats, err := rec.Close(recorder.DefaultCloseGrace)
		if err != nil {
			s.logger.Error("recorder close failed", ports.Err(err))
		}
		s.mu.Lock()
		s.lastRecStats = stats
		s.mu.Unlock()
		s.logger.Info("trajectory recording closed",
			ports.Uint64("written", stats.Written),
			ports.Uint64("dropped", stats.Dropped))
	}

	if transport != nil {
		if err := transport.Close(); err != nil {
			s.logger.Error("transport close failed", ports.Err(err))
		}
	}
}

// Run creates a supervisor, starts it, and blocks until the context is
// canceled or the configured tick limit is reached, then shuts it down.
// The CLI is a thin wrapper around this.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	s, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.Done():
	}

	if s.Status() == StateCrashed {
		return s.Err()
	}
	return s.Stop()
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnLinkChange(previous, current domain.LinkState) {
	if e.handler == nil {
		return
	}
	e.handler.OnLinkChange(LinkChangeEvent{
		Previous: convertLink(previous),
		Current:  convertLink(current),
	})
}

func (e *eventEmitterWrapper) OnDecision(tickID uint64, command domain.ControlVector, sent bool, status domain.HealthStatus) {
	if e.handler == nil {
		return
	}
	e.handler.OnDecision(DecisionEvent{
		TickID:  tickID,
		Command: []float64(command.Clone()),
		Sent:    sent,
		Status:  convertHealth(status),
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

func convertHealth(h domain.HealthStatus) HealthStatus {
	switch h {
	case domain.HealthWarning:
		return HealthWarning
	case domain.HealthCritical:
		return HealthCritical
	default:
		return HealthNominal
	}
}

func convertLink(s domain.LinkState) LinkState {
	switch s {
	case domain.LinkUp:
		return LinkUp
	case domain.LinkDegraded:
		return LinkDegraded
	default:
		return LinkDown
	}
}
