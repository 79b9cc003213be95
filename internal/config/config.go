package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked for in the working directory when no explicit config
// path is given.
const DefaultFile = "glowflux.yaml"

// EnvPrefix namespaces the environment overrides, e.g. GLOWFLUX_API_USERNAME.
const EnvPrefix = "GLOWFLUX"

// Config holds all configuration for the application.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Export  ExportConfig  `mapstructure:"export"`
	Influx  InfluxConfig  `mapstructure:"influx"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig configures the Glowmarkt API transport and credentials.
type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ApplicationID string `mapstructure:"application_id"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Token         string `mapstructure:"token"`
	Timeout       int    `mapstructure:"timeout"` // seconds
	Retries       int    `mapstructure:"retries"`
}

// ExportConfig carries the export defaults a run starts from; command line
// flags override them.
type ExportConfig struct {
	Device string `mapstructure:"device"`
	Period string `mapstructure:"period"`
	Trim   bool   `mapstructure:"trim"`
}

// InfluxConfig selects the optional InfluxDB sink. Leaving URL empty keeps
// the default stdout sink. Bucket addresses the v2 API, Database the v1
// compatibility endpoint.
type InfluxConfig struct {
	URL      string `mapstructure:"url"`
	Org      string `mapstructure:"org"`
	Bucket   string `mapstructure:"bucket"`
	Database string `mapstructure:"database"`
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MetricsConfig selects the optional Pushgateway run summary.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. Precedence,
// highest first: GLOWFLUX_* environment variables, the config file, built-in
// defaults. File values may reference environment variables as $VAR or
// ${VAR}; they are expanded before parsing.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		raw, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(raw); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// readConfigFile parses a YAML config file after expanding $VAR references
// from the environment.
func readConfigFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return raw, nil
}

// setDefaults registers every key so environment overrides bind even when
// the key never appears in a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.application_id", "")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30)
	v.SetDefault("api.retries", 0)

	v.SetDefault("export.device", "")
	v.SetDefault("export.period", "half-hour")
	v.SetDefault("export.trim", true)

	v.SetDefault("influx.url", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "")
	v.SetDefault("influx.database", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.username", "")
	v.SetDefault("influx.password", "")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "glowflux")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
