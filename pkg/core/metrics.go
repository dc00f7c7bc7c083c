package core

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the pipeline's Prometheus collectors.
type Metrics struct {
	TickDuration    prometheus.Histogram
	TickJitter      prometheus.Histogram
	PlatformState   prometheus.Gauge
	ConnectionState prometheus.Gauge
	SinkErrors      prometheus.Counter
	Transitions     *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics against reg, defaulting to the
// global registry when nil. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	tickBuckets := []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simmotion_tick_duration_seconds",
		Help:    "Time spent processing one control tick.",
		Buckets: tickBuckets,
	}), "simmotion_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	jitter, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simmotion_tick_jitter_seconds",
		Help:    "Absolute deviation of the tick interval from the nominal period.",
		Buckets: tickBuckets,
	}), "simmotion_tick_jitter_seconds")
	if err != nil {
		return nil, err
	}
	platform, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simmotion_platform_state",
		Help: "Platform state index: 0 initialized, 1 deactivated, 2 enabled, 3 running, 4 paused.",
	}), "simmotion_platform_state")
	if err != nil {
		return nil, err
	}
	conn, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simmotion_connection_state",
		Help: "Connection state index: 0 waiting_heartbeat, 1 waiting_sim, 2 waiting_data, 3 receiving_data.",
	}), "simmotion_connection_state")
	if err != nil {
		return nil, err
	}
	sinkErrors, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simmotion_sink_errors_total",
		Help: "Pressure sends that failed.",
	}), "simmotion_sink_errors_total")
	if err != nil {
		return nil, err
	}
	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simmotion_platform_transitions_total",
		Help: "Accepted platform state changes, labeled by target state.",
	}, []string{"to"}), "simmotion_platform_transitions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		TickDuration:    duration,
		TickJitter:      jitter,
		PlatformState:   platform,
		ConnectionState: conn,
		SinkErrors:      sinkErrors,
		Transitions:     transitions,
	}, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
