// Package glowflux implements a metering data exporter for the
// Glowmarkt/Bright smart meter platform.
//
// # Architecture
//
// The exporter is structured into several key packages:
//   - glowmarkt: API client for auth, the entity graph and readings
//   - export: pipeline correlating devices with resources, aggregating
//     readings by timestamp and trimming trailing zeros
//   - influx: line protocol encoding and the stdout/HTTP sinks
//   - config: file, $VAR and environment based configuration
//   - metrics: optional Pushgateway run summaries
//
// Key Features
//
//   - Entity correlation:
//     Devices expose sensors and sensors point at resources; the
//     pipeline resolves the full graph up front and fails fast when it
//     cannot.
//
//   - Interval readings:
//     Half-hour, hour, day and week aggregation windows, fetched per
//     resource and tagged with the owning device's hardware ids.
//
//   - Trailing-zero trimming:
//     Meters report late, so the trailing intervals of a window that
//     are all zero are lag rather than data; they are dropped unless
//     the run asks to keep them.
//
// Example Usage
//
//	client := glowmarkt.New(glowmarkt.Config{Token: token}, logger)
//	writer := influx.NewWriter(os.Stdout, logger)
//	pipeline := export.NewPipeline(client, writer, logger)
//	stats, err := pipeline.Run(ctx, export.Options{
//	    From:   time.Now().Add(-24 * time.Hour),
//	    To:     time.Now(),
//	    Period: glowmarkt.PeriodHalfHour,
//	    Trim:   true,
//	})
//
// For more information about specific packages, see their respective
// documentation.
package glowflux
