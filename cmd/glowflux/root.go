package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/glowflux/glowflux/internal/config"
	"github.com/glowflux/glowflux/internal/glowmarkt"
)

var (
	configPath string

	cfg    *config.Config
	logger *logrus.Logger
	runLog logrus.FieldLogger
)

var rootCmd = &cobra.Command{
	Use:   "glowflux",
	Short: "Export Glowmarkt smart meter readings as InfluxDB line protocol",
	Example: "  glowflux devices\n" +
		"  glowflux readings res-id 2022-08-21T09:00:00Z --period hour\n" +
		"  glowflux export -- -1440",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		`path to config file (default "`+config.DefaultFile+`" if present)`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		tokenCmd,
		devicesCmd,
		deviceTypesCmd,
		resourcesCmd,
		resourceTypesCmd,
		virtualEntitiesCmd,
		readingsCmd,
		exportCmd,
	)
}

// setup loads configuration and initializes the structured logger before any
// command runs. Every log line of a run shares one run_id field.
func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logger.SetLevel(level)

	switch cfg.Logging.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		// logrus defaults to its text formatter
	default:
		return fmt.Errorf("invalid log format %q: want text or json", cfg.Logging.Format)
	}

	runLog = logger.WithField("run_id", uuid.NewString())
	return nil
}

// newClient builds the API client from configuration.
func newClient() *glowmarkt.Client {
	return glowmarkt.New(glowmarkt.Config{
		BaseURL:       cfg.API.BaseURL,
		ApplicationID: cfg.API.ApplicationID,
		Token:         cfg.API.Token,
		Timeout:       time.Duration(cfg.API.Timeout) * time.Second,
		Retries:       cfg.API.Retries,
	}, runLog)
}

// login returns a client holding a usable token: the configured token when
// it still validates, otherwise a fresh one from the configured credentials.
func login(ctx context.Context) (*glowmarkt.Client, error) {
	client := newClient()

	if client.Token() != "" {
		err := client.Validate(ctx)
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, glowmarkt.ErrNotAuthenticated) {
			return nil, err
		}
		runLog.Debug("Stored token rejected, falling back to credentials")
	}

	if cfg.API.Username == "" || cfg.API.Password == "" {
		return nil, errors.New("username and password are required")
	}
	if err := client.Authenticate(ctx, cfg.API.Username, cfg.API.Password); err != nil {
		return nil, err
	}
	return client, nil
}

// printJSON pretty-prints v on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// sortedValues flattens an id-keyed map into a slice ordered by id, keeping
// listing output stable across runs.
func sortedValues[T any](byID map[string]T) []T {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	values := make([]T, 0, len(ids))
	for _, id := range ids {
		values = append(values, byID[id])
	}
	return values
}
