package shardqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config groups all tunables.  Values are taken from environment variables with
// the prefix "SQ_". Example: SQ_SHARDS=8 SQ_MAX_ATTEMPTS=3 .
type Config struct {
	Shards         int           `envconfig:"SHARDS"          default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE"      default:"128"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`

	// ErrorHandler is called synchronously with the final error of a Job that
	// failed after all attempts. Leave nil if you do not care.
	ErrorHandler func(key string, err error) `envconfig:"-"`

	// MaxAttempts counts the first run; 3 means two retries.
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS"   default:"3"`
	BaseBackoff time.Duration `envconfig:"BASE_BACKOFF"   default:"200ms"`
	MaxInterval time.Duration `envconfig:"MAX_INTERVAL"   default:"5s"`
}

// LoadConfig populates Config from environment variables (prefix SQ_).
func LoadConfig() (Config, error) {
	var c Config
	return c, envconfig.Process("SQ", &c)
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 100 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	return c
}
