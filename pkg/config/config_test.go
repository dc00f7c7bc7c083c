package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "simmotion.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {},
			validate: func(t *testing.T, cfg *Config) {
				if time.Duration(cfg.Pipeline.Tick) != 50*time.Millisecond {
					t.Errorf("expected default tick 50ms, got %v", time.Duration(cfg.Pipeline.Tick))
				}
				if cfg.Sim.NormFactors != [6]float64{1.2, 1.2, 0.5, -3.0, 2.2, -0.3} {
					t.Errorf("unexpected norm factors %v", cfg.Sim.NormFactors)
				}
				if time.Duration(cfg.Sim.DataTimeout) != 250*time.Millisecond {
					t.Errorf("expected data timeout 250ms, got %v", time.Duration(cfg.Sim.DataTimeout))
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "tick: 50ms") {
					t.Error("config file missing default tick")
				}
				if !strings.Contains(string(content), "# Options: xplane, mock") {
					t.Error("config file missing provider comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("pipeline:\n  tick: 20ms\nplatform:\n  preset: slider\ngains:\n  intensity: 80\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if time.Duration(cfg.Pipeline.Tick) != 20*time.Millisecond {
					t.Errorf("expected tick 20ms, got %v", time.Duration(cfg.Pipeline.Tick))
				}
				if cfg.Platform.Preset != "slider" {
					t.Errorf("expected preset slider, got %q", cfg.Platform.Preset)
				}
				if cfg.Gains.Intensity != 80 {
					t.Errorf("expected intensity 80, got %d", cfg.Gains.Intensity)
				}
				// untouched sections keep defaults
				if cfg.Sim.TelemetryPort != 10022 {
					t.Errorf("expected telemetry port 10022, got %d", cfg.Sim.TelemetryPort)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "telemetry_port") {
					t.Error("existing config file should not be rewritten")
				}
			},
		},
		{
			name: "Env_Override",
			setup: func() {
				t.Setenv(EnvSimAddress, "10.0.0.5")
				t.Setenv(EnvFestoAddress, "10.0.0.6:995")
				t.Setenv(EnvSerialPort, "/dev/ttyACM0")
				err := os.WriteFile(configPath, []byte("sim:\n  address: \"\"\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Sim.Address != "10.0.0.5" {
					t.Errorf("expected sim address from env, got %q", cfg.Sim.Address)
				}
				if cfg.Output.FestoAddress != "10.0.0.6:995" {
					t.Errorf("expected festo address from env, got %q", cfg.Output.FestoAddress)
				}
				if cfg.Switches.Port != "/dev/ttyACM0" {
					t.Errorf("expected serial port from env, got %q", cfg.Switches.Port)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "10.0.0.5") {
					t.Error("environment override should NOT be persisted to config file")
				}
			},
		},
		{
			name: "Invalid_YAML",
			setup: func() {
				err := os.WriteFile(configPath, []byte("pipeline: [not a map]"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_Provider",
			setup: func() {
				err := os.WriteFile(configPath, []byte("sim:\n  provider: simconnect\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_ParkedLengths",
			setup: func() {
				err := os.WriteFile(configPath, []byte("platform:\n  parked_lengths: [800, 800]\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				tt.checkFile(t)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"Defaults", func(*Config) {}, true},
		{"ZeroTick", func(c *Config) { c.Pipeline.Tick = 0 }, false},
		{"ZeroRate", func(c *Config) { c.Pipeline.TransitionRate = 0 }, false},
		{"IntensityHigh", func(c *Config) { c.Gains.Intensity = 151 }, false},
		{"LoadLevelOutside", func(c *Config) { c.Platform.PayloadWeights = []float64{50, 60}; c.Platform.LoadLevel = 2 }, false},
		{"NegativeLoadLevel", func(c *Config) { c.Platform.LoadLevel = -1 }, false},
		{"MockProvider", func(c *Config) { c.Sim.Provider = "mock" }, true},
		{"WashoutDisabled", func(c *Config) { c.Sim.WashoutTimes[0] = 0 }, true},
		{"NegativeWashout", func(c *Config) { c.Sim.WashoutTimes[1] = -1 }, false},
		{"WashoutFlipsSign", func(c *Config) { c.Sim.WashoutTimes[2] = 0.1 }, false},
		{"WashoutAtFourTicks", func(c *Config) { c.Sim.WashoutTimes[3] = 0.2 }, false},
		{"WashoutAboveFourTicks", func(c *Config) { c.Sim.WashoutTimes[3] = 0.25 }, true},
		{"WashoutScalesWithTick", func(c *Config) { c.Pipeline.Tick = Duration(100 * time.Millisecond); c.Sim.WashoutTimes[0] = 0.3 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "default_config.yaml")

	err := GenerateDefault(configPath)
	if err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}

	err = GenerateDefault(configPath)
	if err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if cfg.Gains.Axis != DefaultConfig().Gains.Axis {
		t.Errorf("round trip changed gains: %v", cfg.Gains.Axis)
	}
}
