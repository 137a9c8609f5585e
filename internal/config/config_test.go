package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/papapumpkin/stripes/internal/calendar"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func bindEnv() {
	viper.SetEnvPrefix("STRIPES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Data.Source", cfg.Data.Source, SourceDir},
		{"Data.Dir", cfg.Data.Dir, "data"},
		{"Data.HTTPTimeout", cfg.Data.HTTPTimeout, 30 * time.Second},
		{"Queue.Server.MaxConcurrent", cfg.Queue.Server.MaxConcurrent, 2},
		{"Queue.Server.MinInterval", cfg.Queue.Server.MinInterval, 100 * time.Millisecond},
		{"Queue.Server.CircuitBreakerThreshold", cfg.Queue.Server.CircuitBreakerThreshold, 5},
		{"Queue.Client.MaxConcurrent", cfg.Queue.Client.MaxConcurrent, 4},
		{"Queue.Client.MinInterval", cfg.Queue.Client.MinInterval, time.Duration(0)},
		{"Cache.Years", cfg.Cache.Years, 10},
		{"Cache.Tiles", cfg.Cache.Tiles, 200},
		{"Viewport.Width", cfg.Viewport.Width, 730},
		{"Gesture.WindowDays", cfg.Gesture.WindowDays, 365},
		{"Gesture.ElasticityFactor", cfg.Gesture.ElasticityFactor, 0.3},
		{"Gesture.FrameInterval", cfg.Gesture.FrameInterval, 16 * time.Millisecond},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if got := cfg.EpochDate(); got != calendar.New(2006, 1, 1) {
		t.Errorf("EpochDate = %s, want 2006-01-01", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "data.dir",
			envKey: "STRIPES_DATA_DIR",
			envVal: "/srv/stripes",
			field:  func(c Config) any { return c.Data.Dir },
			want:   "/srv/stripes",
		},
		{
			name:   "queue.server.max_retries",
			envKey: "STRIPES_QUEUE_SERVER_MAX_RETRIES",
			envVal: "7",
			field:  func(c Config) any { return c.Queue.Server.MaxRetries },
			want:   7,
		},
		{
			name:   "queue.server.timeout",
			envKey: "STRIPES_QUEUE_SERVER_TIMEOUT",
			envVal: "5s",
			field:  func(c Config) any { return c.Queue.Server.Timeout },
			want:   5 * time.Second,
		},
		{
			name:   "gesture.elasticity",
			envKey: "STRIPES_GESTURE_ELASTICITY",
			envVal: "0.5",
			field:  func(c Config) any { return c.Gesture.ElasticityFactor },
			want:   0.5,
		},
		{
			name:   "verbose",
			envKey: "STRIPES_VERBOSE",
			envVal: "true",
			field:  func(c Config) any { return c.Verbose },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			bindEnv()
			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper()

	path := filepath.Join(t.TempDir(), ".stripes.yaml")
	body := `
data:
  source: sql
  dsn: file:stripes.db
queue:
  client:
    max_concurrent: 8
    min_interval: 50ms
viewport:
  width: 1460
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.Source != SourceSQL || cfg.Data.DSN != "file:stripes.db" {
		t.Errorf("Data = %+v", cfg.Data)
	}
	name, q := cfg.QueueFor()
	if name != "client" || q.MaxConcurrent != 8 || q.MinInterval != 50*time.Millisecond {
		t.Errorf("QueueFor = %s %+v", name, q)
	}
	// Unset keys in a partially specified section keep their defaults.
	if q.MaxRetries != 2 {
		t.Errorf("client MaxRetries = %d, want default 2", q.MaxRetries)
	}
	if cfg.Viewport.Width != 1460 {
		t.Errorf("Viewport.Width = %d, want 1460", cfg.Viewport.Width)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"unknown source", "data.source", "ftp"},
		{"sql without dsn", "data.source", "sql"},
		{"http without url", "data.source", "http"},
		{"bad epoch", "data.epoch", "2006-13-45"},
		{"zero concurrency", "queue.server.max_concurrent", 0},
		{"elasticity too high", "gesture.elasticity", 1.0},
		{"elasticity zero", "gesture.elasticity", 0.0},
		{"negative elastic cap", "gesture.max_elastic_days", -1},
		{"zero spring friction", "gesture.spring_friction", 0.0},
		{"negative spring tension", "gesture.spring_tension", -5.0},
		{"zero tiles", "cache.tiles", 0},
		{"backoff max below base", "queue.client.retry_delay_max", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.val)

			_, err := Load()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestQueueForHTTPUsesServerPreset(t *testing.T) {
	resetViper()
	viper.Set("data.source", SourceHTTP)
	viper.Set("data.base_url", "https://example.test/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	name, q := cfg.QueueFor()
	if name != "server" || q != cfg.Queue.Server {
		t.Errorf("QueueFor = %s %+v, want server preset", name, q)
	}
}
