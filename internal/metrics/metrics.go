// Package metrics exposes the bot's Prometheus instrumentation.
package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gaanbot_active_sessions",
		Help: "Number of guilds with a live playback session.",
	})

	FramesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gaanbot_frames_delivered_total",
		Help: "Opus frames written to voice connections.",
	})

	TracksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gaanbot_tracks_played_total",
		Help: "Tracks that started playing.",
	})

	PlaybackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gaanbot_playback_errors_total",
		Help: "Playback failures by reason.",
	}, []string{"reason"})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gaanbot_resolution_duration_seconds",
		Help:    "Time spent resolving queries into playable tracks.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// RegisterActiveTranscodes exposes the supervisor's live subprocess count.
func RegisterActiveTranscodes(active func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gaanbot_active_transcodes",
		Help: "Live FFmpeg subprocesses.",
	}, func() float64 {
		return float64(active())
	})
}

// Serve runs the Prometheus listener until the server fails. A closed server
// is not reported as an error.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics listener failed", "addr", addr, "error", err)
	}
}
