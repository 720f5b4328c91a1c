package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Transport  string `toml:"transport"`
	SerialPort string `toml:"serial_port"`
	SerialBaud int    `toml:"serial_baud"`
	UDPListen  string `toml:"udp_listen"`
	UDPPeer    string `toml:"udp_peer"`

	SimSeed     int64 `toml:"sim_seed"`
	SimPeriodMs int   `toml:"sim_period_ms"`

	TickPeriod    string `toml:"tick_period"`
	PolicyBudget  string `toml:"policy_budget"`
	ReceiveBudget int    `toml:"receive_budget"`
	MaxTicks      int    `toml:"max_ticks"`

	AckWindow      string `toml:"ack_window"`
	BackoffInitial string `toml:"backoff_initial"`
	BackoffMax     string `toml:"backoff_max"`
	RetryLimit     int    `toml:"retry_limit"`
	QuietPeriod    string `toml:"quiet_period"`
	SeqWindow      int    `toml:"seq_window"`

	EnvelopeMin []float64 `toml:"envelope_min"`
	EnvelopeMax []float64 `toml:"envelope_max"`
	FailSafe    []float64 `toml:"fail_safe"`
	WarnScale   float64   `toml:"warn_scale"`

	Health FileHealthConfig `toml:"health"`

	RecorderDir        string `toml:"recorder_dir"`
	RecorderFormat     string `toml:"recorder_format"`
	RecorderQueue      int    `toml:"recorder_queue"`
	RecorderMaxRecords int    `toml:"recorder_max_records"`

	ModelPath string `toml:"model_path"`
	LogLevel  string `toml:"log_level"`
}

// FileHealthConfig mirrors HealthConfig for the [health] table.
type FileHealthConfig struct {
	SOCLowCrit     float64 `toml:"soc_low_crit"`
	SOCLowWarn     float64 `toml:"soc_low_warn"`
	SOCHighWarn    float64 `toml:"soc_high_warn"`
	SOCHighCrit    float64 `toml:"soc_high_crit"`
	VoltageLow     float64 `toml:"voltage_low"`
	VoltageHigh    float64 `toml:"voltage_high"`
	CurrentHigh    float64 `toml:"current_high"`
	CurrentRateMax float64 `toml:"current_rate_max"`
	TempWarn       float64 `toml:"temp_warn"`
	TempCrit       float64 `toml:"temp_crit"`
	H2LowWarn      float64 `toml:"h2_low_warn"`
	H2LowCrit      float64 `toml:"h2_low_crit"`
	StaleAfter     string  `toml:"stale_after"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.hevsup/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".hevsup", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("serial-port", fc.SerialPort, &cfg.SerialPort)
	s.setString("udp-listen", fc.UDPListen, &cfg.UDPListen)
	s.setString("udp-peer", fc.UDPPeer, &cfg.UDPPeer)
	s.setString("recorder-dir", fc.RecorderDir, &cfg.RecorderDir)
	s.setString("recorder-format", fc.RecorderFormat, &cfg.RecorderFormat)
	s.setString("model", fc.ModelPath, &cfg.ModelPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("tick-period", fc.TickPeriod, &cfg.TickPeriod); err != nil {
		return err
	}
	if err := s.setDuration("policy-budget", fc.PolicyBudget, &cfg.PolicyBudget); err != nil {
		return err
	}
	if err := s.setDuration("ack-window", fc.AckWindow, &cfg.AckWindow); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", fc.BackoffInitial, &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", fc.BackoffMax, &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("quiet-period", fc.QuietPeriod, &cfg.QuietPeriod); err != nil {
		return err
	}

	s.setFloat("warn-scale", fc.WarnScale, &cfg.WarnScale)

	s.setInt("serial-baud", fc.SerialBaud, &cfg.SerialBaud)
	s.setInt("sim-period", fc.SimPeriodMs, &cfg.SimPeriodMs)
	s.setInt("receive-budget", fc.ReceiveBudget, &cfg.ReceiveBudget)
	s.setInt("max-ticks", fc.MaxTicks, &cfg.MaxTicks)
	s.setInt("retry-limit", fc.RetryLimit, &cfg.RetryLimit)
	s.setInt("seq-window", fc.SeqWindow, &cfg.SeqWindow)
	s.setInt("recorder-queue", fc.RecorderQueue, &cfg.RecorderQueue)
	s.setInt("recorder-max-records", fc.RecorderMaxRecords, &cfg.RecorderMaxRecords)

	s.setInt64("sim-seed", fc.SimSeed, &cfg.SimSeed)

	s.setFloatSlice("envelope-min", fc.EnvelopeMin, &cfg.EnvelopeMin)
	s.setFloatSlice("envelope-max", fc.EnvelopeMax, &cfg.EnvelopeMax)
	s.setFloatSlice("fail-safe", fc.FailSafe, &cfg.FailSafe)

	// Health thresholds have no flags; the names below only shape parse errors.
	s.setFloat("soc-low-crit", fc.Health.SOCLowCrit, &cfg.Health.SOCLowCrit)
	s.setFloat("soc-low-warn", fc.Health.SOCLowWarn, &cfg.Health.SOCLowWarn)
	s.setFloat("soc-high-warn", fc.Health.SOCHighWarn, &cfg.Health.SOCHighWarn)
	s.setFloat("soc-high-crit", fc.Health.SOCHighCrit, &cfg.Health.SOCHighCrit)
	s.setFloat("voltage-low", fc.Health.VoltageLow, &cfg.Health.VoltageLow)
	s.setFloat("voltage-high", fc.Health.VoltageHigh, &cfg.Health.VoltageHigh)
	s.setFloat("current-high", fc.Health.CurrentHigh, &cfg.Health.CurrentHigh)
	s.setFloat("current-rate-max", fc.Health.CurrentRateMax, &cfg.Health.CurrentRateMax)
	s.setFloat("temp-warn", fc.Health.TempWarn, &cfg.Health.TempWarn)
	s.setFloat("temp-crit", fc.Health.TempCrit, &cfg.Health.TempCrit)
	s.setFloat("h2-low-warn", fc.Health.H2LowWarn, &cfg.Health.H2LowWarn)
	s.setFloat("h2-low-crit", fc.Health.H2LowCrit, &cfg.Health.H2LowCrit)
	if err := s.setDuration("stale-after", fc.Health.StaleAfter, &cfg.Health.StaleAfter); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
