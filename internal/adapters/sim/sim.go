// Package sim provides a simulated motor controller behind ports.Transport,
// for bench runs without hardware and for end-to-end loop tests.
//
// The model is deliberately coarse: a wandering driver demand drives load
// power, the last commanded split routes load between fuel cell and battery,
// and SOC, hydrogen level and temperature integrate the result. All noise
// comes from a seeded source, so runs with the same seed are reproducible.
package sim

import (
	"math/rand"
	"sync"

	"github.com/h2labs/hevsup/internal/codec"
	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// Defaults for the simulated controller.
const (
	DefaultSeed     = 1
	DefaultPeriodMs = 100

	initialSOC  = 0.65
	initialH2   = 0.90
	initialTemp = 25.0
	baseLoadW   = 100.0
)

// Config holds simulator settings.
type Config struct {
	// Seed initializes the noise source. Zero selects DefaultSeed.
	Seed int64

	// PeriodMs is the simulated telemetry interval. Zero selects
	// DefaultPeriodMs.
	PeriodMs uint32
}

// Transport implements ports.Transport with a simulated controller on the
// other end. Every TryReceive advances the model one telemetry interval.
type Transport struct {
	mu     sync.Mutex
	cfg    Config
	rng    *rand.Rand
	logger ports.Logger
	closed bool

	// Plant state.
	soc         float64
	h2          float64
	temp        float64
	driverInput float64
	split       float64
	timeMs      uint32
	nextSeq     uint16

	// Link state.
	outbox  []byte
	inbox   []byte
	lastCmd domain.CommandFrame
	hasCmd  bool
}

// New creates a simulated controller transport.
func New(cfg Config, logger ports.Logger) *Transport {
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	if cfg.PeriodMs == 0 {
		cfg.PeriodMs = DefaultPeriodMs
	}
	logger.Info("simulated controller started",
		ports.Int64("seed", cfg.Seed),
		ports.Uint64("period_ms", uint64(cfg.PeriodMs)))
	return &Transport{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		logger:  logger,
		soc:     initialSOC,
		h2:      initialH2,
		temp:    initialTemp,
		nextSeq: 1,
	}
}

// Send delivers command bytes to the simulated controller. Complete frames
// are applied immediately; the next telemetry frame acknowledges the last
// one received.
func (t *Transport) Send(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}

	t.inbox = append(t.inbox, p...)
	for len(t.inbox) > 0 {
		frame, res := codec.DecodeCommand(t.inbox)
		switch res.Status {
		case codec.DecodeOk:
			t.inbox = t.inbox[res.Consumed:]
			t.lastCmd = frame
			t.hasCmd = true
			if len(frame.Vector) > 0 {
				t.split = clamp(frame.Vector[0], 0, 1)
			}
		case codec.DecodeCorrupt:
			t.inbox = t.inbox[res.Discard:]
		default:
			return nil
		}
	}
	return nil
}

// TryReceive steps the plant one interval and returns up to max bytes of the
// buffered telemetry stream.
func (t *Transport) TryReceive(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransportClosed
	}
	if max <= 0 {
		return nil, nil
	}

	t.step()

	n := len(t.outbox)
	if n > max {
		n = max
	}
	out := make([]byte, n)
	copy(out, t.outbox[:n])
	t.outbox = t.outbox[n:]
	return out, nil
}

// Close shuts the simulator down.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}
	t.closed = true
	return nil
}

// LastCommand returns the most recent command frame the simulator applied,
// if any. Test hook.
func (t *Transport) LastCommand() (domain.CommandFrame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastCmd, t.hasCmd
}

// step advances the plant one telemetry interval and queues the resulting
// frame.
func (t *Transport) step() {
	t.timeMs += t.cfg.PeriodMs

	t.driverInput += t.rng.NormFloat64() * 0.05
	t.driverInput = clamp(t.driverInput, -1, 1)

	load := baseLoadW + abs(t.driverInput)*200 + t.rng.NormFloat64()*10
	if load < 0 {
		load = 0
	}

	fcPower := load * t.split
	batteryPower := load - fcPower

	t.soc += -batteryPower * 0.0001 / 3600
	t.soc = clamp(t.soc, 0.10, 0.95)

	if fcPower > 0 {
		t.h2 -= fcPower * 0.00001
		if t.h2 < 0 {
			t.h2 = 0
		}
	}

	t.temp += (load/1000 - 0.05) + t.rng.NormFloat64()*0.1
	t.temp = clamp(t.temp, 20, 70)

	voltage := 22.0 + t.soc*4.0 + t.rng.NormFloat64()*0.1
	current := 0.0
	if voltage > 0 {
		current = load / voltage
	}

	baseRPM := 1000 + int(abs(t.driverInput)*500)
	var rpm [domain.MotorCount]uint16
	for i := range rpm {
		rpm[i] = uint16(baseRPM + t.rng.Intn(101) - 50)
	}

	ackSeq := domain.NoAck
	if t.hasCmd {
		ackSeq = t.lastCmd.Seq
	}

	readings := domain.Readings{
		SOC:           t.soc,
		PackVoltage:   voltage,
		PackCurrent:   current,
		PackTemp:      t.temp,
		H2Level:       t.h2,
		FuelCellPower: fcPower,
		LoadPower:     load,
		DriverDemand:  t.driverInput,
		MotorRPM:      rpm,
	}
	raw, _, _ := codec.EncodeTelemetry(t.nextSeq, ackSeq, t.timeMs, readings)
	t.nextSeq++
	t.outbox = append(t.outbox, raw...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
