// Package export implements the metering export pipeline: resolve the
// account's device and resource graph, fetch interval readings for every
// sensor, aggregate them by timestamp across the whole account, trim the
// trailing all-zero intervals the meters have not reported yet, and hand the
// surviving measurements to a line protocol writer in chronological order.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glowflux/glowflux/internal/glowmarkt"
	"github.com/glowflux/glowflux/internal/influx"
)

// series is the measurement name every exported point is written under.
const series = "glowmarkt"

// Client is the slice of the metering API the pipeline needs.
type Client interface {
	Devices(ctx context.Context) (map[string]glowmarkt.Device, error)
	Device(ctx context.Context, id string) (*glowmarkt.Device, error)
	Resources(ctx context.Context) (map[string]glowmarkt.Resource, error)
	Readings(ctx context.Context, resourceID string, start, end time.Time, period glowmarkt.Period) ([]glowmarkt.Reading, error)
}

// MeasurementWriter receives the pipeline's output. Both the stdout and the
// InfluxDB HTTP sinks satisfy it.
type MeasurementWriter interface {
	Write(m *influx.Measurement) error
	Flush(ctx context.Context) error
}

// Options selects what a run exports.
type Options struct {
	Device string // single device id, empty exports every device
	From   time.Time
	To     time.Time
	Period glowmarkt.Period
	Trim   bool // drop trailing all-zero intervals
}

// Stats summarises a finished run.
type Stats struct {
	DevicesProcessed int
	DevicesFailed    int
	FailedDevices    []string
	ReadingsFetched  int
	LinesWritten     int
	IntervalsTrimmed int
}

// Pipeline wires a metering API client to a measurement writer.
type Pipeline struct {
	client Client
	writer MeasurementWriter
	logger logrus.FieldLogger
}

// NewPipeline builds a Pipeline.
func NewPipeline(client Client, writer MeasurementWriter, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		client: client,
		writer: writer,
		logger: logger,
	}
}

// Run exports the selected window. Devices are processed in ascending id
// order and their measurements land in one account-wide bucket map, so
// identical input yields byte-identical output in ascending timestamp order.
// A device that fails mid-run is skipped with its measurements discarded
// before they reach the shared map; the run only errors when every selected
// device failed, when entity resolution failed, or when the writer failed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Stats, error) {
	var stats Stats

	if opts.From.After(opts.To) {
		return stats, fmt.Errorf("invalid export window: from %s is after to %s",
			opts.From.UTC().Format(time.RFC3339), opts.To.UTC().Format(time.RFC3339))
	}

	devices, err := p.selectDevices(ctx, opts.Device)
	if err != nil {
		return stats, err
	}
	if len(devices) == 0 {
		p.logger.Info("No devices to export")
		return stats, nil
	}

	resources, err := p.resolveResources(ctx)
	if err != nil {
		return stats, err
	}

	buckets := NewBuckets()
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		logger := p.logger.WithField("device", device.ID)
		measurements, readings, err := p.collectDevice(ctx, device, resources, opts)
		if err != nil {
			if ctx.Err() != nil {
				return stats, err
			}
			logger.WithError(err).Error("Device export failed, skipping")
			stats.DevicesFailed++
			stats.FailedDevices = append(stats.FailedDevices, device.ID)
			continue
		}

		for _, m := range measurements {
			buckets.Add(m)
		}
		stats.DevicesProcessed++
		stats.ReadingsFetched += readings
		logger.WithField("readings", readings).Info("Device readings collected")
	}

	if stats.DevicesProcessed == 0 {
		return stats, fmt.Errorf("export failed for all %d devices: %s",
			len(devices), strings.Join(stats.FailedDevices, ", "))
	}
	if stats.DevicesFailed > 0 {
		p.logger.WithField("devices", strings.Join(stats.FailedDevices, ", ")).
			Warn("Export finished with failed devices")
	}

	// Trimming looks at whole intervals, so it has to run after every device
	// contributed: a zero from one meter is not trailing while another meter
	// still has data at that timestamp.
	if opts.Trim {
		stats.IntervalsTrimmed = buckets.TrimTrailingZeros()
	}

	for _, ts := range buckets.Timestamps() {
		for _, m := range buckets.At(ts) {
			if err := p.writer.Write(m); err != nil {
				return stats, fmt.Errorf("failed to write measurement: %w", err)
			}
			stats.LinesWritten++
		}
	}

	if err := p.writer.Flush(ctx); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}
	return stats, nil
}

// collectDevice fetches readings for every sensor on the device and maps
// them to measurements. The result is staged rather than aggregated directly
// so a device that fails partway contributes nothing. A sensor referencing a
// resource the account no longer exposes is skipped rather than failing the
// device.
func (p *Pipeline) collectDevice(ctx context.Context, device glowmarkt.Device, resources map[string]glowmarkt.Resource, opts Options) ([]*influx.Measurement, int, error) {
	deviceTags := influx.TagsForDevice(&device)

	var measurements []*influx.Measurement
	readings := 0
	for _, sensor := range device.Protocol.Sensors {
		resource, ok := resources[sensor.ResourceID]
		if !ok {
			p.logger.WithFields(logrus.Fields{
				"device":   device.ID,
				"sensor":   sensor.ProtocolID,
				"resource": sensor.ResourceID,
			}).Warn("Sensor references unknown resource, skipping")
			continue
		}

		fetched, err := p.client.Readings(ctx, resource.ID, opts.From, opts.To, opts.Period)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch readings for resource %s: %w", resource.ID, err)
		}

		field := influx.FieldForClassifier(resource.Classifier)
		resourceTags := influx.TagsForResource(deviceTags, &resource)
		for _, reading := range fetched {
			m := influx.NewMeasurement(series, reading.Start, resourceTags)
			m.AddField(field, reading.Value)
			measurements = append(measurements, m)
		}
		readings += len(fetched)
	}
	return measurements, readings, nil
}
