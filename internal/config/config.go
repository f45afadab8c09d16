package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("presenced version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
}

type ServerConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
	Name    string        `mapstructure:"name"`
	Version string        `mapstructure:"version"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// BrokerConfig controls the cross-device authorization request lifecycle.
type BrokerConfig struct {
	// RequestTTL is how long a PENDING request stays resolvable before the
	// sweep marks it EXPIRED.
	RequestTTL time.Duration `mapstructure:"request_ttl"`
	// SweepInterval is how often the expiry sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// PollInterval is the subscription polling fallback period used when the
	// realtime channel misses an update.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// CreateRatePerMinute caps how many requests one identity anchor may open
	// per minute. Zero disables the limit.
	CreateRatePerMinute int `mapstructure:"create_rate_per_minute"`
}

// SessionConfig controls the layer sequencing policy of local scan sessions.
type SessionConfig struct {
	// SkipLayers names layers to skip entirely (e.g. "VOICE_PRINT" for
	// profiles that cannot complete a voice capture).
	SkipLayers []string `mapstructure:"skip_layers"`
	// MinimumLayers is the number of passed layers that suffices for unlock.
	// Zero means every non-skipped layer is required.
	MinimumLayers int `mapstructure:"minimum_layers"`
	// CohesionDeadline is an optional wall-clock budget for the whole layer
	// sequence. Zero disables it.
	CohesionDeadline time.Duration `mapstructure:"cohesion_deadline"`
}

type StorageBackend string

const (
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendSQLite StorageBackend = "sqlite"
)

type StorageConfig struct {
	Backend StorageBackend `mapstructure:"backend"`
	// Path is the sqlite database file. Ignored for the memory backend.
	Path string `mapstructure:"path"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("storage-backend", string(StorageBackendMemory), "Storage backend (memory|sqlite)")
	pflag.String("storage-path", "", "Path to the sqlite database file")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("PRESENCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/presenced")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if backend := viper.GetString("storage-backend"); backend != "" {
		cfg.Storage.Backend = StorageBackend(backend)
	}
	if path := viper.GetString("storage-path"); path != "" {
		cfg.Storage.Path = path
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8443)
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("server.name", "presenced")
	viper.SetDefault("server.version", version)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.color", true)
	viper.SetDefault("broker.request_ttl", "2m")
	viper.SetDefault("broker.sweep_interval", "15s")
	viper.SetDefault("broker.poll_interval", "2s")
	viper.SetDefault("broker.create_rate_per_minute", 6)
	viper.SetDefault("session.minimum_layers", 0)
	viper.SetDefault("storage.backend", string(StorageBackendMemory))
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	if c.Broker.RequestTTL <= 0 {
		return fmt.Errorf("broker.request_ttl must be positive")
	}
	if c.Broker.SweepInterval <= 0 {
		return fmt.Errorf("broker.sweep_interval must be positive")
	}
	return nil
}
