package cliconfig

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"HEVSUP_TRANSPORT":    "serial",
				"HEVSUP_SERIAL_PORT":  "/dev/ttyACM0",
				"HEVSUP_TICK_PERIOD":  "50ms",
				"HEVSUP_WARN_SCALE":   "0.4",
				"HEVSUP_SIM_SEED":     "-7",
				"HEVSUP_ENVELOPE_MIN": "0,0",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Transport:   "serial",
				SerialPort:  "/dev/ttyACM0",
				TickPeriod:  50 * time.Millisecond,
				WarnScale:   0.4,
				SimSeed:     -7,
				EnvelopeMin: []float64{0, 0},
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"HEVSUP_TRANSPORT":    "udp",
				"HEVSUP_RECORDER_DIR": "/env/data",
			},
			changed: map[string]bool{"transport": true},
			initial: Config{
				Transport: "serial",
			},
			expected: Config{
				Transport:   "serial",
				RecorderDir: "/env/data",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"HEVSUP_TICK_PERIOD": "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"HEVSUP_RETRY_LIMIT": "not-a-number",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid float",
			envVars: map[string]string{
				"HEVSUP_WARN_SCALE": "not-a-float",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for a bad float in a vector",
			envVars: map[string]string{
				"HEVSUP_FAIL_SAFE": "0.2,mid,0.3",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "vector values may carry spaces",
			envVars: map[string]string{
				"HEVSUP_FAIL_SAFE": "0.2, 0.3",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				FailSafe: []float64{0.2, 0.3},
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"HEVSUP_TRANSPORT":            "udp",
				"HEVSUP_SERIAL_PORT":          "/dev/ttyS1",
				"HEVSUP_SERIAL_BAUD":          "57600",
				"HEVSUP_UDP_LISTEN":           ":9000",
				"HEVSUP_UDP_PEER":             "10.0.0.2:9000",
				"HEVSUP_SIM_SEED":             "42",
				"HEVSUP_SIM_PERIOD_MS":        "50",
				"HEVSUP_TICK_PERIOD":          "50ms",
				"HEVSUP_POLICY_BUDGET":        "10ms",
				"HEVSUP_RECEIVE_BUDGET":       "2048",
				"HEVSUP_MAX_TICKS":            "500",
				"HEVSUP_ACK_WINDOW":           "200ms",
				"HEVSUP_BACKOFF_INITIAL":      "80ms",
				"HEVSUP_BACKOFF_MAX":          "1s",
				"HEVSUP_RETRY_LIMIT":          "3",
				"HEVSUP_QUIET_PERIOD":         "400ms",
				"HEVSUP_SEQ_WINDOW":           "512",
				"HEVSUP_ENVELOPE_MIN":         "0,0",
				"HEVSUP_ENVELOPE_MAX":         "1,1",
				"HEVSUP_FAIL_SAFE":            "0.2,0.2",
				"HEVSUP_WARN_SCALE":           "0.6",
				"HEVSUP_RECORDER_DIR":         "/var/lib/hevsup",
				"HEVSUP_RECORDER_FORMAT":      "csv",
				"HEVSUP_RECORDER_QUEUE":       "128",
				"HEVSUP_RECORDER_MAX_RECORDS": "5000",
				"HEVSUP_MODEL_PATH":           "models/adjust.json",
				"HEVSUP_LOG_LEVEL":            "debug",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Transport:          "udp",
				SerialPort:         "/dev/ttyS1",
				SerialBaud:         57600,
				UDPListen:          ":9000",
				UDPPeer:            "10.0.0.2:9000",
				SimSeed:            42,
				SimPeriodMs:        50,
				TickPeriod:         50 * time.Millisecond,
				PolicyBudget:       10 * time.Millisecond,
				ReceiveBudget:      2048,
				MaxTicks:           500,
				AckWindow:          200 * time.Millisecond,
				BackoffInitial:     80 * time.Millisecond,
				BackoffMax:         time.Second,
				RetryLimit:         3,
				QuietPeriod:        400 * time.Millisecond,
				SeqWindow:          512,
				EnvelopeMin:        []float64{0, 0},
				EnvelopeMax:        []float64{1, 1},
				FailSafe:           []float64{0.2, 0.2},
				WarnScale:          0.6,
				RecorderDir:        "/var/lib/hevsup",
				RecorderFormat:     "csv",
				RecorderQueue:      128,
				RecorderMaxRecords: 5000,
				ModelPath:          "models/adjust.json",
				LogLevel:           "debug",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			// Clean up after test
			defer func() {
				for k := range tt.envVars {
					os.Unsetenv(k)
				}
			}()

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	// Setup file config
	fileConf := FileConfig{
		Transport:   "udp",
		TickPeriod:  "80ms",
		RecorderDir: "/file/data",
	}

	// Setup env vars
	os.Setenv("HEVSUP_TRANSPORT", "serial")
	os.Setenv("HEVSUP_RECORDER_DIR", "/env/data")
	defer func() {
		os.Unsetenv("HEVSUP_TRANSPORT")
		os.Unsetenv("HEVSUP_RECORDER_DIR")
	}()

	// Simulate CLI flags
	changed := map[string]bool{
		"transport": true, // CLI flag was set for transport
	}

	cfg := Config{
		Transport: "sim", // This should remain (CLI wins)
	}

	// Apply file config
	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}

	// Apply env config
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	// Verify precedence: CLI > Env > File
	if cfg.Transport != "sim" {
		t.Errorf("Transport = %v, want sim (CLI should win)", cfg.Transport)
	}
	if cfg.RecorderDir != "/env/data" {
		t.Errorf("RecorderDir = %v, want /env/data (env should override file)", cfg.RecorderDir)
	}
	if cfg.TickPeriod != 80*time.Millisecond {
		t.Errorf("TickPeriod = %v, want 80ms (file should set)", cfg.TickPeriod)
	}
}
