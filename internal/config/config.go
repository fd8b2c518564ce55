package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Storage backend names accepted in configuration.
const (
	StorageBackendPostgres   = "postgres"
	StorageBackendFilesystem = "filesystem"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Renderer RendererConfig `yaml:"renderer"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RendererConfig holds the external renderer invocation settings
type RendererConfig struct {
	// Command is the renderer executable, e.g. "manim" or a container
	// wrapper script.
	Command string `yaml:"command"`
	// ExtraArgs are fixed arguments inserted before the generated ones.
	ExtraArgs []string `yaml:"extra_args"`
	// Quality is the renderer quality profile (l, m, h, k).
	Quality string `yaml:"quality"`
	// Timeout bounds one render attempt wall-clock.
	Timeout time.Duration `yaml:"timeout"`
	// WorkRoot is the directory per-job workspaces are created under.
	WorkRoot string `yaml:"work_root"`
}

// JobsConfig holds orchestrator configuration
type JobsConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	QueueSize     int           `yaml:"queue_size"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StorageConfig holds artifact store configuration
type StorageConfig struct {
	// Backend selects the artifact store: "postgres" or "filesystem".
	Backend string `yaml:"backend"`
	// PublicBaseURL is prepended to artifact keys to form artifact URLs.
	PublicBaseURL string         `yaml:"public_base_url"`
	Filesystem    FSStoreConfig  `yaml:"filesystem"`
	Database      DatabaseConfig `yaml:"database"`
}

// FSStoreConfig holds filesystem store configuration
type FSStoreConfig struct {
	Root string `yaml:"root"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Renderer.Command == "" {
		return fmt.Errorf("renderer command is required")
	}

	if c.Renderer.Timeout <= 0 {
		return fmt.Errorf("renderer timeout must be greater than 0")
	}

	if c.Renderer.WorkRoot == "" {
		return fmt.Errorf("renderer work_root is required")
	}

	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs concurrency must be greater than 0")
	}

	if c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("jobs queue_size must be greater than 0")
	}

	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("jobs retention must be greater than 0")
	}

	if c.Jobs.SweepInterval <= 0 {
		return fmt.Errorf("jobs sweep_interval must be greater than 0")
	}

	switch c.Storage.Backend {
	case StorageBackendFilesystem:
		if c.Storage.Filesystem.Root == "" {
			return fmt.Errorf("storage filesystem root is required")
		}
	case StorageBackendPostgres:
		if c.Storage.Database.Host == "" {
			return fmt.Errorf("storage database host is required")
		}
		if c.Storage.Database.Port < MinPort || c.Storage.Database.Port > MaxPort {
			return fmt.Errorf("invalid storage database port: %d (must be between %d and %d)", c.Storage.Database.Port, MinPort, MaxPort)
		}
		if c.Storage.Database.Database == "" {
			return fmt.Errorf("storage database name is required")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	return nil
}
