package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"simmotion/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Operator settings, restored at start and saved on change.
	AxisGains(ctx context.Context) [6]float64
	MasterGain(ctx context.Context) float64
	Intensity(ctx context.Context) int
	LoadLevel(ctx context.Context) int
	FlightMode(ctx context.Context) int
	AssistLevel(ctx context.Context) int

	SaveAxisGains(ctx context.Context, g [6]float64) error
	SaveMasterGain(ctx context.Context, g float64) error
	SaveIntensity(ctx context.Context, v int) error
	SaveLoadLevel(ctx context.Context, v int) error
	SaveFlightMode(ctx context.Context, v int) error
	SaveAssistLevel(ctx context.Context, v int) error

	// Connection
	SimProvider(ctx context.Context) string
	DataTimeout(ctx context.Context) time.Duration

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Implementations ---

func (p *UnifiedProvider) AxisGains(ctx context.Context) [6]float64 {
	g := p.base.Gains.Axis
	val := p.getString(ctx, KeyAxisGains, "")
	if val == "" {
		return g
	}
	parsed, err := parseGains(val)
	if err != nil {
		return g
	}
	return parsed
}

func (p *UnifiedProvider) MasterGain(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyMasterGain, p.base.Gains.Master)
}

func (p *UnifiedProvider) Intensity(ctx context.Context) int {
	return p.getInt(ctx, KeyIntensity, p.base.Gains.Intensity)
}

func (p *UnifiedProvider) LoadLevel(ctx context.Context) int {
	return p.getInt(ctx, KeyLoadLevel, p.base.Platform.LoadLevel)
}

func (p *UnifiedProvider) FlightMode(ctx context.Context) int {
	return p.getInt(ctx, KeyFlightMode, 0)
}

func (p *UnifiedProvider) AssistLevel(ctx context.Context) int {
	return p.getInt(ctx, KeyAssist, 0)
}

func (p *UnifiedProvider) SimProvider(ctx context.Context) string {
	fallback := p.base.Sim.Provider
	if fallback == "" {
		fallback = "xplane"
	}
	return p.getString(ctx, KeySimSource, fallback)
}

func (p *UnifiedProvider) DataTimeout(ctx context.Context) time.Duration {
	return time.Duration(p.base.Sim.DataTimeout)
}

func (p *UnifiedProvider) SaveAxisGains(ctx context.Context, g [6]float64) error {
	return p.set(ctx, KeyAxisGains, formatGains(g))
}

func (p *UnifiedProvider) SaveMasterGain(ctx context.Context, g float64) error {
	return p.set(ctx, KeyMasterGain, strconv.FormatFloat(g, 'f', -1, 64))
}

func (p *UnifiedProvider) SaveIntensity(ctx context.Context, v int) error {
	return p.set(ctx, KeyIntensity, strconv.Itoa(v))
}

func (p *UnifiedProvider) SaveLoadLevel(ctx context.Context, v int) error {
	return p.set(ctx, KeyLoadLevel, strconv.Itoa(v))
}

func (p *UnifiedProvider) SaveFlightMode(ctx context.Context, v int) error {
	return p.set(ctx, KeyFlightMode, strconv.Itoa(v))
}

func (p *UnifiedProvider) SaveAssistLevel(ctx context.Context, v int) error {
	return p.set(ctx, KeyAssist, strconv.Itoa(v))
}

func formatGains(g [6]float64) string {
	parts := make([]string, len(g))
	for i, v := range g {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func parseGains(s string) ([6]float64, error) {
	var g [6]float64
	parts := strings.Split(s, ",")
	if len(parts) != len(g) {
		return g, fmt.Errorf("expected %d gains, got %d", len(g), len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return g, fmt.Errorf("gain %d: %w", i, err)
		}
		g[i] = v
	}
	return g, nil
}

// --- Helpers ---

func (p *UnifiedProvider) set(ctx context.Context, key, val string) error {
	if p.store == nil {
		return nil
	}
	return p.store.SetState(ctx, key, val)
}

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getInt(ctx context.Context, key string, fallback int) int {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				return i
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}
