package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/glowflux/glowflux/internal/export"
	"github.com/glowflux/glowflux/internal/glowmarkt"
	"github.com/glowflux/glowflux/internal/influx"
	"github.com/glowflux/glowflux/internal/metrics"
)

var (
	exportDevice string
	exportPeriod string
	exportNoTrim bool
)

var exportCmd = &cobra.Command{
	Use:   "export FROM [TO]",
	Short: "Export readings as InfluxDB line protocol",
	Long: "Export interval readings for the account's devices as InfluxDB line\n" +
		"protocol, one line per reading, in ascending timestamp order across\n" +
		"all devices.\n" +
		"Dates are RFC 3339 timestamps or negative minute offsets from now\n" +
		"(use \"--\" before a negative offset); TO defaults to now.\n" +
		"Lines go to stdout unless an InfluxDB URL is configured.",
	Example: "  glowflux export 2022-08-21T00:00:00Z\n" +
		"  glowflux export --device dev-id --period day -- -10080",
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDevice, "device", "",
		"export a single device id (default all devices)")
	exportCmd.Flags().StringVar(&exportPeriod, "period", "half-hour",
		"aggregation period: half-hour, hour, day or week")
	exportCmd.Flags().BoolVar(&exportNoTrim, "no-trim", false,
		"keep trailing intervals whose values are all zero")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Flags win over the config file's export section.
	device := exportDevice
	if !cmd.Flags().Changed("device") {
		device = cfg.Export.Device
	}
	periodName := exportPeriod
	if !cmd.Flags().Changed("period") {
		periodName = cfg.Export.Period
	}
	trim := cfg.Export.Trim
	if exportNoTrim {
		trim = false
	}

	period, err := glowmarkt.ParsePeriod(periodName)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	from, err := parseDate(args[0], now)
	if err != nil {
		return fmt.Errorf("invalid FROM date: %w", err)
	}
	to := now
	if len(args) == 2 {
		if to, err = parseDate(args[1], now); err != nil {
			return fmt.Errorf("invalid TO date: %w", err)
		}
	}

	client, err := login(ctx)
	if err != nil {
		return err
	}

	writer, err := newWriter()
	if err != nil {
		return err
	}

	runLog.WithFields(logrus.Fields{
		"from":   from.Format(time.RFC3339),
		"to":     to.Format(time.RFC3339),
		"period": period.String(),
	}).Info("Starting export")

	pipeline := export.NewPipeline(client, writer, runLog)

	started := time.Now()
	stats, runErr := pipeline.Run(ctx, export.Options{
		Device: device,
		From:   from,
		To:     to,
		Period: period,
		Trim:   trim,
	})
	duration := time.Since(started)

	// Push whatever the run produced; a partial run is still worth a gauge.
	metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, runLog).
		PushRunSummary(stats, duration)

	if runErr != nil {
		return runErr
	}

	runLog.WithFields(logrus.Fields{
		"devices":  stats.DevicesProcessed,
		"failed":   stats.DevicesFailed,
		"readings": stats.ReadingsFetched,
		"lines":    stats.LinesWritten,
		"trimmed":  stats.IntervalsTrimmed,
		"duration": duration.Round(time.Millisecond).String(),
	}).Info("Export complete")
	return nil
}

// newWriter selects the sink: an InfluxDB write endpoint when influx.url is
// configured, stdout otherwise.
func newWriter() (export.MeasurementWriter, error) {
	if cfg.Influx.URL == "" {
		return influx.NewWriter(os.Stdout, runLog), nil
	}

	bucket := cfg.Influx.Bucket
	if bucket == "" {
		bucket = cfg.Influx.Database
	}
	return influx.NewHTTPWriter(influx.HTTPConfig{
		URL:      cfg.Influx.URL,
		Org:      cfg.Influx.Org,
		Bucket:   bucket,
		Token:    cfg.Influx.Token,
		Username: cfg.Influx.Username,
		Password: cfg.Influx.Password,
	}, runLog)
}
