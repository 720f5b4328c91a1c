package hevsup

import (
	"fmt"
	"time"

	"github.com/h2labs/hevsup/internal/adapters/serialport"
	"github.com/h2labs/hevsup/internal/adapters/sim"
	"github.com/h2labs/hevsup/internal/app"
	"github.com/h2labs/hevsup/internal/arbiter"
	"github.com/h2labs/hevsup/internal/health"
	"github.com/h2labs/hevsup/internal/link"
	"github.com/h2labs/hevsup/internal/recorder"
	"github.com/h2labs/hevsup/internal/state"
)

// Transport kinds accepted by Config.Transport.
const (
	// TransportSim runs the built-in simulated MCU. No hardware needed.
	TransportSim = "sim"

	// TransportSerial talks to the MCU over a serial port.
	TransportSerial = "serial"

	// TransportUDP talks to the MCU over UDP datagrams.
	TransportUDP = "udp"
)

// Trajectory file formats accepted by Config.RecorderFormat.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Config holds the configuration for the supervisor.
// Use SetDefaults() to fill zero fields with sensible defaults; New() calls
// it for you.
type Config struct {
	// Transport selects the MCU link: TransportSim, TransportSerial or
	// TransportUDP. Defaults to TransportSim.
	Transport string

	// SerialPort and SerialBaud configure the serial transport.
	// Default /dev/ttyUSB0 at 115200 baud.
	SerialPort string
	SerialBaud int

	// UDPListen and UDPPeer configure the UDP transport: the local address
	// to bind and the MCU's address. Both are required for TransportUDP.
	UDPListen string
	UDPPeer   string

	// SimSeed seeds the simulated MCU so runs are reproducible. SimPeriodMs
	// is its telemetry period in MCU milliseconds. Defaults 1 and 100.
	SimSeed     int64
	SimPeriodMs uint32

	// TickPeriod is the control period. PolicyBudget bounds the policy
	// stage of each tick; a policy that returns past the deadline has its
	// output discarded for that tick. ReceiveBudget caps the transport
	// bytes drained per tick. Defaults 100ms, 20ms, 4096.
	TickPeriod    time.Duration
	PolicyBudget  time.Duration
	ReceiveBudget int

	// MaxTicks stops the supervisor after that many ticks. Zero runs until
	// Stop() or context cancellation. Used for soak runs.
	MaxTicks uint64

	// Link session timing: the acknowledgment window, the retransmit
	// backoff bounds, the consecutive-miss limit that takes the link down,
	// and the quiet period required before the recovery handshake.
	AckWindow      time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	RetryLimit     int
	QuietPeriod    time.Duration

	// SeqWindow is the telemetry sequence acceptance window used to tell
	// stale frames from wraparound. Default 1024.
	SeqWindow int

	// EnvelopeMin and EnvelopeMax bound each control axis; FailSafe is the
	// posture asserted when the link is down or the baseline fails, and
	// must lie inside the envelope. All three must have the same length.
	// Default is a single axis [0,1] with fail-safe 0.2.
	EnvelopeMin []float64
	EnvelopeMax []float64
	FailSafe    []float64

	// WarnScale is how much of the adjustment survives under WARNING
	// health, in (0,1]. Default 0.5.
	WarnScale float64

	// Health holds the monitor thresholds. Zero fields use the package
	// defaults.
	Health HealthThresholds

	// Trajectory recording: output directory, file format (FormatJSONL or
	// FormatCSV), queue capacity and per-file record limit before rotation.
	RecorderDir        string
	RecorderFormat     string
	RecorderQueue      int
	RecorderMaxRecords int

	// ModelPath names the adjustment model JSON file, watched and
	// hot-reloaded on change. Empty runs with no adjustment unless one is
	// injected via WithAdjustmentPolicy.
	ModelPath string
}

// HealthThresholds mirrors the monitor's sensor limits. Zero fields fall
// back to the monitor defaults documented in internal/health.
type HealthThresholds struct {
	SOCLowCrit     float64
	SOCLowWarn     float64
	SOCHighWarn    float64
	SOCHighCrit    float64
	VoltageLow     float64
	VoltageHigh    float64
	CurrentHigh    float64
	CurrentRateMax float64
	TempWarn       float64
	TempCrit       float64
	H2LowWarn      float64
	H2LowCrit      float64
	StaleAfter     time.Duration
}

func (t HealthThresholds) toInternal() health.Thresholds {
	return health.Thresholds{
		SOCLowCrit:     t.SOCLowCrit,
		SOCLowWarn:     t.SOCLowWarn,
		SOCHighWarn:    t.SOCHighWarn,
		SOCHighCrit:    t.SOCHighCrit,
		VoltageLow:     t.VoltageLow,
		VoltageHigh:    t.VoltageHigh,
		CurrentHigh:    t.CurrentHigh,
		CurrentRateMax: t.CurrentRateMax,
		TempWarn:       t.TempWarn,
		TempCrit:       t.TempCrit,
		H2LowWarn:      t.H2LowWarn,
		H2LowCrit:      t.H2LowCrit,
		StaleAfter:     t.StaleAfter,
	}
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.Transport == "" {
		c.Transport = TransportSim
	}
	if c.SerialPort == "" {
		c.SerialPort = "/dev/ttyUSB0"
	}
	if c.SerialBaud == 0 {
		c.SerialBaud = serialport.DefaultBaud
	}
	if c.SimSeed == 0 {
		c.SimSeed = sim.DefaultSeed
	}
	if c.SimPeriodMs == 0 {
		c.SimPeriodMs = sim.DefaultPeriodMs
	}
	if c.TickPeriod == 0 {
		c.TickPeriod = app.DefaultTickPeriod
	}
	if c.PolicyBudget == 0 {
		c.PolicyBudget = app.DefaultPolicyBudget
	}
	if c.ReceiveBudget == 0 {
		c.ReceiveBudget = app.DefaultReceiveBudget
	}
	if c.AckWindow == 0 {
		c.AckWindow = link.DefaultAckWindow
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = link.DefaultBackoffInitial
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = link.DefaultBackoffMax
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = link.DefaultRetryLimit
	}
	if c.QuietPeriod == 0 {
		c.QuietPeriod = link.DefaultQuietPeriod
	}
	if c.SeqWindow == 0 {
		c.SeqWindow = state.DefaultSeqWindow
	}
	if c.EnvelopeMin == nil && c.EnvelopeMax == nil && c.FailSafe == nil {
		c.EnvelopeMin = []float64{0}
		c.EnvelopeMax = []float64{1}
		c.FailSafe = []float64{0.2}
	}
	if c.WarnScale == 0 {
		c.WarnScale = arbiter.DefaultWarnScale
	}
	if c.RecorderDir == "" {
		c.RecorderDir = "data"
	}
	if c.RecorderFormat == "" {
		c.RecorderFormat = FormatJSONL
	}
	if c.RecorderQueue == 0 {
		c.RecorderQueue = recorder.DefaultQueueCap
	}
	if c.RecorderMaxRecords == 0 {
		c.RecorderMaxRecords = recorder.DefaultMaxRecordsPerFile
	}
}

// Validate checks the configuration for errors.
// Call SetDefaults() first; New() does both.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSim, TransportSerial, TransportUDP:
	default:
		return fmt.Errorf("unknown transport %q (want sim, serial or udp)", c.Transport)
	}
	if c.Transport == TransportSerial && c.SerialPort == "" {
		return fmt.Errorf("serial-port is required for the serial transport")
	}
	if c.Transport == TransportUDP && (c.UDPListen == "" || c.UDPPeer == "") {
		return fmt.Errorf("udp-listen and udp-peer are required for the udp transport")
	}

	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive")
	}
	if c.PolicyBudget <= 0 {
		return fmt.Errorf("policy budget must be positive")
	}
	if c.PolicyBudget >= c.TickPeriod {
		return fmt.Errorf("policy budget must be shorter than the tick period")
	}
	if c.ReceiveBudget <= 0 {
		return fmt.Errorf("receive budget must be positive")
	}
	if c.AckWindow <= 0 || c.QuietPeriod <= 0 {
		return fmt.Errorf("ack window and quiet period must be positive")
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("backoff bounds must be positive with max >= initial")
	}
	if c.RetryLimit < 1 {
		return fmt.Errorf("retry limit must be at least 1")
	}
	if c.SeqWindow < 1 {
		return fmt.Errorf("sequence window must be at least 1")
	}

	n := len(c.EnvelopeMin)
	if n == 0 || len(c.EnvelopeMax) != n || len(c.FailSafe) != n {
		return fmt.Errorf("envelope min, max and fail-safe must share one or more axes")
	}
	for i := 0; i < n; i++ {
		if c.EnvelopeMin[i] > c.EnvelopeMax[i] {
			return fmt.Errorf("envelope axis %d has min above max", i)
		}
		if c.FailSafe[i] < c.EnvelopeMin[i] || c.FailSafe[i] > c.EnvelopeMax[i] {
			return fmt.Errorf("fail-safe axis %d is outside the envelope", i)
		}
	}
	if c.WarnScale <= 0 || c.WarnScale > 1 {
		return fmt.Errorf("warn scale must be in (0,1]")
	}

	switch c.RecorderFormat {
	case FormatJSONL, FormatCSV:
	default:
		return fmt.Errorf("unknown recorder format %q (want jsonl or csv)", c.RecorderFormat)
	}
	if c.RecorderDir == "" {
		return fmt.Errorf("recorder directory is required")
	}

	return nil
}
