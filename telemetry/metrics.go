// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PlayCommands          prometheus.Counter
	CooldownRejections    prometheus.Counter
	UnauthorizedCommands  prometheus.Counter
	AcquisitionsStarted   prometheus.Counter
	AcquisitionsFailed    prometheus.Counter
	AcquisitionsSucceeded prometheus.Counter
	BroadcastSendFailures prometheus.Counter

	// Histograms (seconds)
	AcquireDuration prometheus.Observer

	// Gauges
	ConnectedClientsGauge prometheus.Gauge
	MutingEnabledGauge    prometheus.Gauge // 1=enabled,0=disabled
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PlayCommands = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_play_commands_total", Help: "Number of accepted play commands"})
		CooldownRejections = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_cooldown_rejections_total", Help: "Number of play commands rejected by the cooldown gate"})
		UnauthorizedCommands = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_unauthorized_commands_total", Help: "Number of privileged commands dropped for lack of authorization"})
		AcquisitionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_acquisitions_started_total", Help: "Number of clip acquisitions started"})
		AcquisitionsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_acquisitions_failed_total", Help: "Number of clip acquisitions failed"})
		AcquisitionsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_acquisitions_succeeded_total", Help: "Number of clip acquisitions succeeded"})
		BroadcastSendFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_broadcast_send_failures_total", Help: "Number of per-client broadcast send failures"})
		AcquireDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clip_acquire_duration_seconds", Help: "Clip acquisition duration seconds", Buckets: []float64{1, 5, 15, 30, 60, 120, 300}})
		ConnectedClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_connected_clients", Help: "Current number of connected overlay clients"})
		MutingEnabledGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_muting_enabled", Help: "Muting toggle enabled=1 disabled=0"})
	})
}

// SetConnectedClients records the current overlay client count.
func SetConnectedClients(n int) {
	if ConnectedClientsGauge != nil {
		ConnectedClientsGauge.Set(float64(n))
	}
}

// UpdateMutingGauge sets gauge to 1 if muting is enabled else 0.
func UpdateMutingGauge(enabled bool) {
	if MutingEnabledGauge != nil {
		if enabled {
			MutingEnabledGauge.Set(1)
		} else {
			MutingEnabledGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
