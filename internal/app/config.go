package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/corey/dashgate/internal/adapters/web"
)

// DefaultMaxAuditEntries bounds the audit log when max_entries is unset.
const DefaultMaxAuditEntries = 10000

// Config is the server configuration, loaded from YAML and overridden by flags.
type Config struct {
	Root       string `yaml:"root"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	PublicHost string `yaml:"public_host"`
	Watch      bool   `yaml:"watch"`
	StateDir   string `yaml:"state_dir"`

	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // auto|console|json
	File   string `yaml:"file"`   // optional extra JSON log file
}

// AuditConfig controls the bbolt request audit log.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Root:  ".",
		Host:  "0.0.0.0",
		Port:  web.DefaultPort,
		Watch: true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Audit: AuditConfig{
			Enabled:    true,
			MaxEntries: DefaultMaxAuditEntries,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the result.
// An empty path returns the validated defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and fills defaults for zero values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Root == "" {
		c.Root = "."
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "":
		c.Logging.Format = "auto"
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q: want auto, console or json", c.Logging.Format)
	}

	if c.Audit.MaxEntries < 0 {
		return fmt.Errorf("audit.max_entries %d is negative", c.Audit.MaxEntries)
	}
	if c.Audit.MaxEntries == 0 {
		c.Audit.MaxEntries = DefaultMaxAuditEntries
	}
	return nil
}
