package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies valid config values",
			fileConfig: FileConfig{
				Transport:   "serial",
				SerialPort:  "/dev/ttyACM0",
				TickPeriod:  "50ms",
				WarnScale:   0.4,
				EnvelopeMin: []float64{0, 0},
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Transport:   "serial",
				SerialPort:  "/dev/ttyACM0",
				TickPeriod:  50 * time.Millisecond,
				WarnScale:   0.4,
				EnvelopeMin: []float64{0, 0},
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Transport:   "udp",
				RecorderDir: "/file/data",
			},
			changed: map[string]bool{"transport": true},
			initial: Config{
				Transport: "serial",
			},
			expected: Config{
				Transport:   "serial", // unchanged because flag was set
				RecorderDir: "/file/data",
			},
			wantErr: false,
		},
		{
			name: "rejects a bad duration",
			fileConfig: FileConfig{
				TickPeriod: "soon",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				Transport:          "udp",
				SerialPort:         "/dev/ttyS1",
				SerialBaud:         57600,
				UDPListen:          ":9000",
				UDPPeer:            "10.0.0.2:9000",
				SimSeed:            -7,
				SimPeriodMs:        50,
				TickPeriod:         "50ms",
				PolicyBudget:       "10ms",
				ReceiveBudget:      2048,
				MaxTicks:           500,
				AckWindow:          "200ms",
				BackoffInitial:     "80ms",
				BackoffMax:         "1s",
				RetryLimit:         3,
				QuietPeriod:        "400ms",
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
				Health: FileHealthConfig{
					TempCrit:   55,
					StaleAfter: "3s",
				},
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Transport:          "udp",
				SerialPort:         "/dev/ttyS1",
				SerialBaud:         57600,
				UDPListen:          ":9000",
				UDPPeer:            "10.0.0.2:9000",
				SimSeed:            -7,
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
				Health: HealthConfig{
					TempCrit:   55,
					StaleAfter: 3 * time.Second,
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	// Create a temporary TOML file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
transport = "serial"
serial_port = "/dev/ttyACM0"
tick_period = "50ms"
warn_scale = 0.4
envelope_min = [0.0, 0.0]
envelope_max = [1.0, 1.0]
fail_safe = [0.2, 0.2]
max_ticks = 500

[health]
temp_crit = 55.0
stale_after = "3s"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Transport != "serial" {
		t.Errorf("Transport = %v, want serial", fc.Transport)
	}
	if fc.SerialPort != "/dev/ttyACM0" {
		t.Errorf("SerialPort = %v, want /dev/ttyACM0", fc.SerialPort)
	}
	if fc.TickPeriod != "50ms" {
		t.Errorf("TickPeriod = %v, want 50ms", fc.TickPeriod)
	}
	if fc.WarnScale != 0.4 {
		t.Errorf("WarnScale = %v, want 0.4", fc.WarnScale)
	}
	if !reflect.DeepEqual(fc.EnvelopeMin, []float64{0, 0}) {
		t.Errorf("EnvelopeMin = %v, want [0 0]", fc.EnvelopeMin)
	}
	if !reflect.DeepEqual(fc.FailSafe, []float64{0.2, 0.2}) {
		t.Errorf("FailSafe = %v, want [0.2 0.2]", fc.FailSafe)
	}
	if fc.MaxTicks != 500 {
		t.Errorf("MaxTicks = %v, want 500", fc.MaxTicks)
	}
	if fc.Health.TempCrit != 55 {
		t.Errorf("Health.TempCrit = %v, want 55", fc.Health.TempCrit)
	}
	if fc.Health.StaleAfter != "3s" {
		t.Errorf("Health.StaleAfter = %v, want 3s", fc.Health.StaleAfter)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
transport = "sim"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	// Should return a path containing .hevsup
	if path != "" && !strings.Contains(path, ".hevsup") {
		t.Errorf("DefaultConfigPath() = %v, should contain .hevsup", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
