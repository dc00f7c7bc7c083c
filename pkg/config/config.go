package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is read.
const (
	EnvSimAddress   = "SIMMOTION_SIM_ADDRESS"
	EnvFestoAddress = "SIMMOTION_FESTO_ADDRESS"
	EnvSerialPort   = "SIMMOTION_SERIAL_PORT"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Platform PlatformConfig `yaml:"platform"`
	Gains    GainsConfig    `yaml:"gains"`
	Sim      SimConfig      `yaml:"sim"`
	Output   OutputConfig   `yaml:"output"`
	Switches SwitchesConfig `yaml:"switches"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`

	// Rotations is how many previous runs are kept as .1 .. .N.
	Rotations int `yaml:"rotations"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// PipelineConfig holds the control loop settings.
type PipelineConfig struct {
	Tick Duration `yaml:"tick"`

	// TransitionRate is the activation ramp speed in mm/s.
	TransitionRate float64 `yaml:"transition_rate"`
}

// PlatformConfig selects the geometry and the pressure tables.
type PlatformConfig struct {
	Preset       string `yaml:"preset"`
	GeometryFile string `yaml:"geometry_file"`
	LoadTable    string `yaml:"load_table"`

	// ParkedLengths, PayloadWeights and UnloadedWeight override the
	// geometry values when set.
	ParkedLengths  []int     `yaml:"parked_lengths,omitempty"`
	PayloadWeights []float64 `yaml:"payload_weights,omitempty"`
	UnloadedWeight float64   `yaml:"unloaded_weight,omitempty"`
	LoadLevel      int       `yaml:"load_level"`
}

// GainsConfig holds operator gains at startup.
type GainsConfig struct {
	Axis      [6]float64 `yaml:"axis"`
	Master    float64    `yaml:"master"`
	Intensity int        `yaml:"intensity"`
}

// SimConfig holds settings for the simulator connection.
type SimConfig struct {
	Provider          string        `yaml:"provider"` // "xplane", "mock"
	Address           string        `yaml:"address"`
	TelemetryPort     int           `yaml:"telemetry_port"`
	CommandPort       int           `yaml:"command_port"`
	HeartbeatPort     int           `yaml:"heartbeat_port"`
	HeartbeatInterval Duration      `yaml:"heartbeat_interval"`
	HandshakeInterval Duration      `yaml:"handshake_interval"`
	DataTimeout       Duration      `yaml:"data_timeout"`
	Marker            string        `yaml:"marker"`
	NormFactors       [6]float64    `yaml:"norm_factors"`
	WashoutTimes      [6]float64    `yaml:"washout_times"`
	SupportedAircraft []string      `yaml:"supported_aircraft"`
	Discover          Duration      `yaml:"discover_timeout"`
	Mock              MockSimConfig `yaml:"mock"`
}

// MockSimConfig holds settings for the mock simulator.
type MockSimConfig struct {
	ICAO            string   `yaml:"icao"`
	DurationParked  Duration `yaml:"duration_parked"`
	DurationTaxi    Duration `yaml:"duration_taxi"`
	DurationTakeoff Duration `yaml:"duration_takeoff"`
}

// OutputConfig holds actuator output settings.
type OutputConfig struct {
	FestoAddress string `yaml:"festo_address"`
	Virtual      bool   `yaml:"virtual"`
	EchoAddress  string `yaml:"echo_address"`
}

// SwitchesConfig holds serial switch panel settings.
type SwitchesConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "logs/simmotion.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path: "logs/events.log",
			},
			Rotations: 3,
		},
		DB: DBConfig{
			Path: "data/simmotion.db",
		},
		Server: ServerConfig{
			Address: "localhost:1971",
		},
		Pipeline: PipelineConfig{
			Tick:           Duration(50 * time.Millisecond),
			TransitionRate: 50,
		},
		Platform: PlatformConfig{
			Preset:    "chair",
			LoadTable: "configs/chair_DtoP.csv",
			LoadLevel: 1,
		},
		Gains: GainsConfig{
			Axis:      [6]float64{1, 1, 1, 1, 1, 1},
			Master:    1,
			Intensity: 100,
		},
		Sim: SimConfig{
			Provider:          "xplane",
			TelemetryPort:     10022,
			CommandPort:       10023,
			HeartbeatPort:     10030,
			HeartbeatInterval: Duration(1 * time.Second),
			HandshakeInterval: Duration(1 * time.Second),
			DataTimeout:       Duration(250 * time.Millisecond),
			Marker:            "xplane_running",
			NormFactors:       [6]float64{1.2, 1.2, 0.5, -3.0, 2.2, -0.3},
			WashoutTimes:      [6]float64{12, 12, 12, 0, 0, 0},
			Discover:          Duration(3 * time.Second),
			Mock: MockSimConfig{
				ICAO:            "C172",
				DurationParked:  Duration(10 * time.Second),
				DurationTaxi:    Duration(20 * time.Second),
				DurationTakeoff: Duration(30 * time.Second),
			},
		},
		Output: OutputConfig{
			FestoAddress: "192.168.0.10:995",
			Virtual:      true,
			EchoAddress:  "255.255.255.255:10020",
		},
		Switches: SwitchesConfig{
			Baud: 57600,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Environment overrides are applied in both cases but never saved back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvSimAddress); v != "" {
		cfg.Sim.Address = v
	}
	if v := os.Getenv(EnvFestoAddress); v != "" {
		cfg.Output.FestoAddress = v
	}
	if v := os.Getenv(EnvSerialPort); v != "" {
		cfg.Switches.Port = v
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.Tick <= 0 {
		return fmt.Errorf("pipeline.tick must be positive, got %s", time.Duration(c.Pipeline.Tick))
	}
	if c.Pipeline.TransitionRate <= 0 {
		return fmt.Errorf("pipeline.transition_rate must be positive, got %v", c.Pipeline.TransitionRate)
	}
	// The per-tick washout factor 1-4*tick/t only decays for t > 4*tick; 0 disables the axis.
	minWashout := 4 * time.Duration(c.Pipeline.Tick).Seconds()
	for i, w := range c.Sim.WashoutTimes {
		if w < 0 || (w > 0 && w <= minWashout) {
			return fmt.Errorf("sim.washout_times[%d] must be 0 or above %gs, got %g", i, minWashout, w)
		}
	}
	if c.Gains.Intensity < 0 || c.Gains.Intensity > 150 {
		return fmt.Errorf("gains.intensity out of range [0, 150]: %d", c.Gains.Intensity)
	}
	if c.Platform.ParkedLengths != nil && len(c.Platform.ParkedLengths) != 6 {
		return fmt.Errorf("platform.parked_lengths needs 6 values, got %d", len(c.Platform.ParkedLengths))
	}
	if c.Platform.LoadLevel < 0 {
		return fmt.Errorf("platform.load_level must not be negative, got %d", c.Platform.LoadLevel)
	}
	if n := len(c.Platform.PayloadWeights); n > 0 && c.Platform.LoadLevel >= n {
		return fmt.Errorf("platform.load_level %d outside payload_weights", c.Platform.LoadLevel)
	}
	switch c.Sim.Provider {
	case "xplane", "mock":
	default:
		return fmt.Errorf("unknown sim.provider %q", c.Sim.Provider)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# SimMotion Configuration
# -----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h; a bare number is seconds
#   Lengths in mm, weights in kg, washout times in seconds
# Environment overrides: SIMMOTION_SIM_ADDRESS, SIMMOTION_FESTO_ADDRESS, SIMMOTION_SERIAL_PORT

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: xplane, mock\n${1}provider:"))

	rePreset := regexp.MustCompile(`(?m)^(\s+)preset:`)
	data = rePreset.ReplaceAll(data, []byte("${1}# Options: chair, slider (ignored when geometry_file is set)\n${1}preset:"))

	reAddress := regexp.MustCompile(`(?m)^(\s+)address: ""`)
	data = reAddress.ReplaceAll(data, []byte("${1}# Empty: discover via the X-Plane multicast beacon\n${1}address: \"\""))

	reAxis := regexp.MustCompile(`(?m)^(\s+)axis:`)
	data = reAxis.ReplaceAll(data, []byte("${1}# surge, sway, heave, roll, pitch, yaw\n${1}axis:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
