package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "manim", cfg.Renderer.Command)
				assert.Equal(t, []string{"render"}, cfg.Renderer.ExtraArgs)
				assert.Equal(t, "l", cfg.Renderer.Quality)
				assert.Equal(t, 5*time.Minute, cfg.Renderer.Timeout)
				assert.Equal(t, 4, cfg.Jobs.Concurrency)
				assert.Equal(t, time.Hour, cfg.Jobs.Retention)
				assert.Equal(t, StorageBackendFilesystem, cfg.Storage.Backend)
				assert.Equal(t, "render-service", cfg.App.Name)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Renderer: RendererConfig{
			Command:  "manim",
			Quality:  "l",
			Timeout:  5 * time.Minute,
			WorkRoot: "/tmp/render-service",
		},
		Jobs: JobsConfig{
			Concurrency:   4,
			QueueSize:     64,
			Retention:     time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:    StorageBackendFilesystem,
			Filesystem: FSStoreConfig{Root: "/var/lib/render-service/artifacts"},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "missing renderer command",
			mutate:    func(c *Config) { c.Renderer.Command = "" },
			wantErr:   true,
			errString: "renderer command is required",
		},
		{
			name:      "zero renderer timeout",
			mutate:    func(c *Config) { c.Renderer.Timeout = 0 },
			wantErr:   true,
			errString: "renderer timeout must be greater than 0",
		},
		{
			name:      "missing work root",
			mutate:    func(c *Config) { c.Renderer.WorkRoot = "" },
			wantErr:   true,
			errString: "renderer work_root is required",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Jobs.Concurrency = 0 },
			wantErr:   true,
			errString: "jobs concurrency must be greater than 0",
		},
		{
			name:      "zero queue size",
			mutate:    func(c *Config) { c.Jobs.QueueSize = 0 },
			wantErr:   true,
			errString: "jobs queue_size must be greater than 0",
		},
		{
			name:      "zero retention",
			mutate:    func(c *Config) { c.Jobs.Retention = 0 },
			wantErr:   true,
			errString: "jobs retention must be greater than 0",
		},
		{
			name:      "zero sweep interval",
			mutate:    func(c *Config) { c.Jobs.SweepInterval = 0 },
			wantErr:   true,
			errString: "jobs sweep_interval must be greater than 0",
		},
		{
			name:      "filesystem backend without root",
			mutate:    func(c *Config) { c.Storage.Filesystem.Root = "" },
			wantErr:   true,
			errString: "storage filesystem root is required",
		},
		{
			name: "postgres backend without host",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageBackendPostgres
			},
			wantErr:   true,
			errString: "storage database host is required",
		},
		{
			name: "postgres backend with invalid port",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageBackendPostgres
				c.Storage.Database.Host = "localhost"
				c.Storage.Database.Port = 0
			},
			wantErr:   true,
			errString: "invalid storage database port",
		},
		{
			name: "postgres backend without database name",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageBackendPostgres
				c.Storage.Database.Host = "localhost"
				c.Storage.Database.Port = 5432
			},
			wantErr:   true,
			errString: "storage database name is required",
		},
		{
			name:      "unknown storage backend",
			mutate:    func(c *Config) { c.Storage.Backend = "s3" },
			wantErr:   true,
			errString: "unknown storage backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
