// Command glowflux exports smart meter readings from the Glowmarkt API as
// InfluxDB line protocol.
//
// The command supports:
//   - Bearer token auth with username/password fallback
//   - Entity inspection (devices, resources, types, virtual entities)
//   - Interval readings at half-hour, hour, day and week granularity
//   - Batch export with trailing-zero trimming
//   - Output to stdout or an InfluxDB write endpoint
//
// Usage:
//
//	glowflux [command] [flags]
//
// Logs go to stderr and exported lines to stdout, so the output can be piped
// straight into anything that speaks line protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
