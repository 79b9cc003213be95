// Package metrics publishes export run summaries to a Prometheus
// Pushgateway. A run is batch work, so gauges go through the push path
// instead of a scrape endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"

	"github.com/glowflux/glowflux/internal/export"
)

// Pusher publishes run summaries. The zero URL disables it entirely.
type Pusher struct {
	url    string
	job    string
	logger logrus.FieldLogger
}

// NewPusher builds a Pusher for the given Pushgateway URL and job name.
func NewPusher(url, job string, logger logrus.FieldLogger) *Pusher {
	return &Pusher{url: url, job: job, logger: logger}
}

// PushRunSummary publishes the gauges describing one export run. Errors are
// logged and swallowed: metrics must never fail a run that otherwise
// succeeded.
func (p *Pusher) PushRunSummary(stats export.Stats, duration time.Duration) {
	if p.url == "" {
		return
	}

	registry := prometheus.NewRegistry()

	devicesProcessed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_devices_processed",
		Help: "Devices successfully exported in the last run.",
	})
	devicesFailed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_devices_failed",
		Help: "Devices skipped after errors in the last run.",
	})
	readingsFetched := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_readings_fetched",
		Help: "Readings fetched from the metering API in the last run.",
	})
	linesWritten := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_lines_written",
		Help: "Line protocol lines written in the last run.",
	})
	intervalsTrimmed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_intervals_trimmed",
		Help: "Trailing all-zero intervals dropped in the last run.",
	})
	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_run_duration_seconds",
		Help: "Wall clock duration of the last run.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glowflux_last_run_timestamp_seconds",
		Help: "Unix timestamp of the last completed run.",
	})

	registry.MustRegister(devicesProcessed, devicesFailed, readingsFetched,
		linesWritten, intervalsTrimmed, runDuration, lastRun)

	devicesProcessed.Set(float64(stats.DevicesProcessed))
	devicesFailed.Set(float64(stats.DevicesFailed))
	readingsFetched.Set(float64(stats.ReadingsFetched))
	linesWritten.Set(float64(stats.LinesWritten))
	intervalsTrimmed.Set(float64(stats.IntervalsTrimmed))
	runDuration.Set(duration.Seconds())
	lastRun.SetToCurrentTime()

	if err := push.New(p.url, p.job).Gatherer(registry).Push(); err != nil {
		p.logger.WithError(err).Warn("Failed to push run metrics")
		return
	}
	p.logger.WithField("pushgateway", p.url).Debug("Pushed run metrics")
}
