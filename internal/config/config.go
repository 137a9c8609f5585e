// Package config loads stripes settings through viper. Values come from
// .stripes.yaml, STRIPES_* environment variables and CLI flags, falling back
// to the built-in defaults registered here.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/gesture"
	"github.com/papapumpkin/stripes/internal/queue"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Data source kinds.
const (
	SourceDir  = "dir"
	SourceSQL  = "sql"
	SourceHTTP = "http"
)

// DataConfig selects and configures the year data source.
type DataConfig struct {
	Source      string        `mapstructure:"source"`
	Dir         string        `mapstructure:"dir"`
	DSN         string        `mapstructure:"dsn"`
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	Registry    string        `mapstructure:"registry"`
	// Epoch is the earliest supported data date; positions count from it.
	Epoch string `mapstructure:"epoch"`
}

// QueueConfig holds the two request queue presets. Server talks to a remote
// API with an unknown rate limit; Client fronts local sources.
type QueueConfig struct {
	Server queue.Config `mapstructure:"server"`
	Client queue.Config `mapstructure:"client"`
}

// CacheConfig bounds the year and tile caches by entry count.
type CacheConfig struct {
	Years   int           `mapstructure:"years"`
	Tiles   int           `mapstructure:"tiles"`
	YearTTL time.Duration `mapstructure:"year_ttl"`
}

// ViewportConfig is the initial geometry.
type ViewportConfig struct {
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	PreloadMargin int `mapstructure:"preload_margin"`
}

// Config holds all runtime configuration.
type Config struct {
	Data          DataConfig     `mapstructure:"data"`
	Queue         QueueConfig    `mapstructure:"queue"`
	Cache         CacheConfig    `mapstructure:"cache"`
	Viewport      ViewportConfig `mapstructure:"viewport"`
	Gesture       gesture.Config `mapstructure:"gesture"`
	TelemetryPath string         `mapstructure:"telemetry_path"`
	Verbose       bool           `mapstructure:"verbose"`
}

// ServerQueue is the default preset for remote sources.
func ServerQueue() queue.Config {
	return queue.DefaultConfig()
}

// ClientQueue is the default preset for local sources: more parallelism,
// no pacing, quicker give-up.
func ClientQueue() queue.Config {
	c := queue.DefaultConfig()
	c.MaxConcurrent = 4
	c.MinInterval = 0
	c.MaxRetries = 2
	c.RetryDelayBase = 200 * time.Millisecond
	c.RetryDelayMax = 2 * time.Second
	c.Timeout = 10 * time.Second
	c.CircuitBreakerThreshold = 3
	c.CircuitBreakerResetTime = 10 * time.Second
	return c
}

func setQueueDefaults(prefix string, c queue.Config) {
	viper.SetDefault(prefix+".max_concurrent", c.MaxConcurrent)
	viper.SetDefault(prefix+".min_interval", c.MinInterval)
	viper.SetDefault(prefix+".max_retries", c.MaxRetries)
	viper.SetDefault(prefix+".retry_delay_base", c.RetryDelayBase)
	viper.SetDefault(prefix+".retry_delay_max", c.RetryDelayMax)
	viper.SetDefault(prefix+".timeout", c.Timeout)
	viper.SetDefault(prefix+".circuit_breaker_threshold", c.CircuitBreakerThreshold)
	viper.SetDefault(prefix+".circuit_breaker_reset_time", c.CircuitBreakerResetTime)
}

func setDefaults() {
	viper.SetDefault("data.source", SourceDir)
	viper.SetDefault("data.dir", "data")
	viper.SetDefault("data.dsn", "")
	viper.SetDefault("data.base_url", "")
	viper.SetDefault("data.http_timeout", 30*time.Second)
	viper.SetDefault("data.registry", "")
	viper.SetDefault("data.epoch", "2006-01-01")

	setQueueDefaults("queue.server", ServerQueue())
	setQueueDefaults("queue.client", ClientQueue())

	viper.SetDefault("cache.years", 10)
	viper.SetDefault("cache.tiles", 200)
	viper.SetDefault("cache.year_ttl", time.Duration(0))

	viper.SetDefault("viewport.width", 730)
	viper.SetDefault("viewport.height", 600)
	viper.SetDefault("viewport.preload_margin", 1)

	g := gesture.DefaultConfig()
	viper.SetDefault("gesture.window_days", g.WindowDays)
	viper.SetDefault("gesture.elasticity", g.ElasticityFactor)
	viper.SetDefault("gesture.max_elastic_days", g.MaxElasticDays)
	viper.SetDefault("gesture.velocity_threshold", g.VelocityThreshold)
	viper.SetDefault("gesture.momentum_scale", g.MomentumScale)
	viper.SetDefault("gesture.spring_tension", g.SpringTension)
	viper.SetDefault("gesture.spring_friction", g.SpringFriction)
	viper.SetDefault("gesture.frame_interval", g.FrameInterval)
	viper.SetDefault("gesture.wheel_idle", g.WheelIdle)

	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("verbose", false)
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Data.Source {
	case SourceDir:
		if c.Data.Dir == "" {
			return invalid("data.dir", "required for the dir source")
		}
	case SourceSQL:
		if c.Data.DSN == "" {
			return invalid("data.dsn", "required for the sql source")
		}
	case SourceHTTP:
		if c.Data.BaseURL == "" {
			return invalid("data.base_url", "required for the http source")
		}
	default:
		return invalid("data.source", fmt.Sprintf("unknown source %q", c.Data.Source))
	}
	if _, err := calendar.Parse(c.Data.Epoch); err != nil {
		return invalid("data.epoch", err.Error())
	}
	for name, q := range map[string]queue.Config{"queue.server": c.Queue.Server, "queue.client": c.Queue.Client} {
		if q.MaxConcurrent < 1 {
			return invalid(name+".max_concurrent", "must be >= 1")
		}
		if q.MaxRetries < 0 {
			return invalid(name+".max_retries", "must be >= 0")
		}
		if q.RetryDelayMax < q.RetryDelayBase {
			return invalid(name+".retry_delay_max", "must be >= retry_delay_base")
		}
	}
	if c.Cache.Years < 1 || c.Cache.Tiles < 1 {
		return invalid("cache", "years and tiles must be >= 1")
	}
	if c.Viewport.Width < 1 {
		return invalid("viewport.width", "must be >= 1")
	}
	g := c.Gesture
	if g.ElasticityFactor <= 0 || g.ElasticityFactor >= 1 {
		return invalid("gesture.elasticity", "must be in (0,1)")
	}
	if g.MaxElasticDays < 0 {
		return invalid("gesture.max_elastic_days", "must be >= 0")
	}
	if g.SpringTension <= 0 {
		return invalid("gesture.spring_tension", "must be > 0")
	}
	if g.SpringFriction <= 0 {
		return invalid("gesture.spring_friction", "must be > 0")
	}
	if g.WindowDays < 1 {
		return invalid("gesture.window_days", "must be >= 1")
	}
	if g.FrameInterval <= 0 {
		return invalid("gesture.frame_interval", "must be > 0")
	}
	return nil
}

func invalid(key, msg string) error {
	return fmt.Errorf("config: %s: %s: %w", key, msg, ErrInvalid)
}

// EpochDate parses Data.Epoch. Load has already validated it.
func (c Config) EpochDate() calendar.Date {
	d, _ := calendar.Parse(c.Data.Epoch)
	return d
}

// QueueFor returns the preset matching the configured source.
func (c Config) QueueFor() (name string, q queue.Config) {
	if c.Data.Source == SourceHTTP {
		return "server", c.Queue.Server
	}
	return "client", c.Queue.Client
}
