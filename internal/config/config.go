package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrMissingAPIURL = errors.New("api url is not configured (set API_URL or TODO_API_URL)")
	ErrMissingToken  = errors.New("api token is not configured (set TODO_API_TOKEN or --token)")
)

type Config struct {
	API       APIConfig
	Exporter  ExporterConfig
	Metrics   MetricsConfig
	LogLevel  string
	LogPretty bool
}

type APIConfig struct {
	URL       string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

type ExporterConfig struct {
	Addr            string
	Interval        time.Duration
	ShutdownTimeout time.Duration
}

type MetricsConfig struct {
	Path string
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"api-url":   "api.url",
	"token":     "api.token",
	"timeout":   "api.timeout",
	"log-level": "loglevel",
	"pretty":    "logpretty",
	"addr":      "exporter.addr",
	"interval":  "exporter.interval",
}

// Load reads configuration from defaults, an optional config file, a .env
// file and the environment.
func Load() (*Config, error) {
	return LoadFrom("", nil)
}

// LoadFrom is Load with an explicit config file and command-line flags.
// Flags that were set take precedence over every other source.
func LoadFrom(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional; existing environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "todo"))
		}
	}

	// Environment variable binding
	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API_URL is the name the web frontend uses for the same setting
	if err := v.BindEnv("api.url", "TODO_API_URL", "API_URL"); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.API.URL = strings.TrimSpace(cfg.API.URL)

	return &cfg, nil
}

// Validate checks the settings every client call depends on.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return ErrMissingAPIURL
	}
	if c.API.Token == "" {
		return ErrMissingToken
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.useragent", "todo-client-go")

	// Exporter defaults
	v.SetDefault("exporter.addr", ":9090")
	v.SetDefault("exporter.interval", 30*time.Second)
	v.SetDefault("exporter.shutdowntimeout", 10*time.Second)

	// Metrics defaults
	v.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	v.SetDefault("loglevel", "info")
	v.SetDefault("logpretty", false)
}
