package gesture

import "time"

// Config holds the navigation physics constants.
type Config struct {
	// WindowDays is the display window; the earliest valid position is the
	// first one with a full window of data behind it.
	WindowDays int `mapstructure:"window_days"`
	// ElasticityFactor scales overshoot past a bound, in (0,1).
	ElasticityFactor float64 `mapstructure:"elasticity"`
	// MaxElasticDays caps the compressed overshoot.
	MaxElasticDays int `mapstructure:"max_elastic_days"`
	// VelocityThreshold is the release speed, in px/ms, above which
	// momentum applies.
	VelocityThreshold float64 `mapstructure:"velocity_threshold"`
	// MomentumScale converts release velocity (px/ms) into a pixel throw.
	MomentumScale  float64       `mapstructure:"momentum_scale"`
	SpringTension  float64       `mapstructure:"spring_tension"`
	SpringFriction float64       `mapstructure:"spring_friction"`
	FrameInterval  time.Duration `mapstructure:"frame_interval"`
	// WheelIdle ends a wheel session after this long without events.
	WheelIdle time.Duration `mapstructure:"wheel_idle"`
}

// DefaultConfig returns the stock physics.
func DefaultConfig() Config {
	return Config{
		WindowDays:        365,
		ElasticityFactor:  0.3,
		MaxElasticDays:    30,
		VelocityThreshold: 0.5,
		MomentumScale:     200,
		SpringTension:     170,
		SpringFriction:    26,
		FrameInterval:     16 * time.Millisecond,
		WheelIdle:         150 * time.Millisecond,
	}
}
