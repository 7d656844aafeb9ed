// Package config loads the taskboard tools' settings from the environment
// and initialises logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Prefix is prepended to every variable, e.g. TASKBOARD_API_URL.
const Prefix = "TASKBOARD"

// Config holds settings shared by the CLI, the MCP server and the dev server.
type Config struct {
	// APIURL is the task service root.
	APIURL string `envconfig:"API_URL" default:"http://localhost:8000"`

	// Token persistence: file, sqlite or memory. TokenPath defaults to a
	// file under the user config dir.
	TokenStore string `envconfig:"TOKEN_STORE" default:"file"`
	TokenPath  string `envconfig:"TOKEN_PATH" default:""`

	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	FetchRetries int           `envconfig:"FETCH_RETRIES" default:"2"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`

	// DevServerAddr is where cmd/taskboard-devserver listens.
	DevServerAddr string `envconfig:"DEVSERVER_ADDR" default:":8000"`
}

// New reads a Config from TASKBOARD_* variables and fills derived defaults.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveDefaults validates the token store kind and derives TokenPath.
func (c *Config) ResolveDefaults() error {
	c.TokenStore = strings.ToLower(strings.TrimSpace(c.TokenStore))
	switch c.TokenStore {
	case "", "file":
		c.TokenStore = "file"
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported TOKEN_STORE: %s", c.TokenStore)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("FETCH_RETRIES must be >= 0, got %d", c.FetchRetries)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0, got %s", c.HTTPTimeout)
	}
	if c.TokenPath == "" && c.TokenStore != "memory" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		name := "token"
		if c.TokenStore == "sqlite" {
			name = "state.db"
		}
		c.TokenPath = filepath.Join(dir, "taskboard", name)
	}
	return nil
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
