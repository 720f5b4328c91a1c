package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/h2labs/hevsup/internal/adapters/serialport"
	"github.com/h2labs/hevsup/internal/adapters/sim"
	"github.com/h2labs/hevsup/internal/app"
	"github.com/h2labs/hevsup/internal/arbiter"
	"github.com/h2labs/hevsup/internal/link"
	"github.com/h2labs/hevsup/internal/recorder"
	"github.com/h2labs/hevsup/internal/state"
)

// Config holds CLI configuration for hevsup.
type Config struct {
	Transport  string
	SerialPort string
	SerialBaud int
	UDPListen  string
	UDPPeer    string

	SimSeed     int64
	SimPeriodMs int

	TickPeriod    time.Duration
	PolicyBudget  time.Duration
	ReceiveBudget int
	MaxTicks      int

	AckWindow      time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	RetryLimit     int
	QuietPeriod    time.Duration
	SeqWindow      int

	EnvelopeMin []float64
	EnvelopeMax []float64
	FailSafe    []float64
	WarnScale   float64

	Health HealthConfig

	RecorderDir        string
	RecorderFormat     string
	RecorderQueue      int
	RecorderMaxRecords int

	ModelPath string
	LogLevel  string
}

// HealthConfig holds the monitor threshold overrides. Zero fields keep the
// library defaults. Set through the config file only.
type HealthConfig struct {
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

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Transport:          "sim",
		SerialPort:         "/dev/ttyUSB0",
		SerialBaud:         serialport.DefaultBaud,
		SimSeed:            sim.DefaultSeed,
		SimPeriodMs:        sim.DefaultPeriodMs,
		TickPeriod:         app.DefaultTickPeriod,
		PolicyBudget:       app.DefaultPolicyBudget,
		ReceiveBudget:      app.DefaultReceiveBudget,
		AckWindow:          link.DefaultAckWindow,
		BackoffInitial:     link.DefaultBackoffInitial,
		BackoffMax:         link.DefaultBackoffMax,
		RetryLimit:         link.DefaultRetryLimit,
		QuietPeriod:        link.DefaultQuietPeriod,
		SeqWindow:          state.DefaultSeqWindow,
		EnvelopeMin:        []float64{0},
		EnvelopeMax:        []float64{1},
		FailSafe:           []float64{0.2},
		WarnScale:          arbiter.DefaultWarnScale,
		RecorderDir:        "data",
		RecorderFormat:     "jsonl",
		RecorderQueue:      recorder.DefaultQueueCap,
		RecorderMaxRecords: recorder.DefaultMaxRecordsPerFile,
		LogLevel:           "info",
	}
}

// Validate checks the configuration for errors and normalizes case-insensitive
// fields. The library validates again with the full rule set; this catches the
// mistakes worth reporting before anything is constructed.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(c.Transport)
	c.RecorderFormat = strings.ToLower(c.RecorderFormat)

	switch c.Transport {
	case "sim":
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("serial-port is required for the serial transport")
		}
		if c.SerialBaud <= 0 {
			return fmt.Errorf("serial-baud must be positive")
		}
	case "udp":
		if c.UDPListen == "" || c.UDPPeer == "" {
			return fmt.Errorf("udp-listen and udp-peer are required for the udp transport")
		}
	default:
		return fmt.Errorf("transport must be sim, serial or udp")
	}

	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive")
	}
	if c.PolicyBudget <= 0 || c.PolicyBudget >= c.TickPeriod {
		return fmt.Errorf("policy budget must be positive and shorter than the tick period")
	}
	if c.RetryLimit < 1 {
		return fmt.Errorf("retry limit must be at least 1")
	}
	if c.MaxTicks < 0 {
		return fmt.Errorf("max ticks must not be negative")
	}

	n := len(c.EnvelopeMin)
	if n == 0 || len(c.EnvelopeMax) != n || len(c.FailSafe) != n {
		return fmt.Errorf("envelope-min, envelope-max and fail-safe must have the same number of axes")
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
		return fmt.Errorf("warn-scale must be in (0, 1]")
	}

	if c.RecorderFormat != "jsonl" && c.RecorderFormat != "csv" {
		return fmt.Errorf("recorder-format must be jsonl or csv")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if nonzero and flag not changed.
// Nonzero rather than positive: negative seeds are legitimate.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloatSlice sets a float64 slice if non-empty and flag not changed.
func (s *configSetter) setFloatSlice(flag string, value []float64, dst *[]float64) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i == 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setFloatSliceFromString parses a comma-separated float list and sets the
// destination if valid. Used for environment variables that come as strings.
func (s *configSetter) setFloatSliceFromString(flag, value string, dst *[]float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		out = append(out, f)
	}
	*dst = out
	return nil
}
