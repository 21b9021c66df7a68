package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
)

type Config struct {
	Match   MatchConfig   `toml:"match"`
	Replay  ReplayConfig  `toml:"replay"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

type MatchConfig struct {
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	StepMillis  float64 `toml:"step_ms"`
	BallSpeed   float64 `toml:"ball_speed"`   // arena units per millisecond
	PaddleSpeed float64 `toml:"paddle_speed"` // arena units per millisecond
	Frames      int     `toml:"frames"`
	Seed        uint64  `toml:"seed"`
}

type ReplayConfig struct {
	CheckpointEvery int `toml:"checkpoint_every"`
	Replays         int `toml:"replays"`
	ChecksumEvery   int `toml:"checksum_every"` // desync log interval, in frames
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled     bool          `toml:"enabled"`
	ServiceName string        `toml:"service_name"`
	Interval    time.Duration `toml:"interval"`
	Retain      time.Duration `toml:"retain"`
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, eris.Wrapf(err, "load config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate rejects settings no match can run with.
func (c *Config) Validate() error {
	switch {
	case c.Match.Width <= 0 || c.Match.Height <= 0:
		return eris.Errorf("match arena must be positive, got %vx%v", c.Match.Width, c.Match.Height)
	case c.Match.StepMillis <= 0:
		return eris.Errorf("match step_ms must be positive, got %v", c.Match.StepMillis)
	case c.Match.Frames < 0:
		return eris.Errorf("match frames must not be negative, got %d", c.Match.Frames)
	case c.Replay.CheckpointEvery <= 0:
		return eris.Errorf("replay checkpoint_every must be positive, got %d", c.Replay.CheckpointEvery)
	case c.Replay.Replays <= 0:
		return eris.Errorf("replay replays must be positive, got %d", c.Replay.Replays)
	case c.Replay.ChecksumEvery <= 0:
		return eris.Errorf("replay checksum_every must be positive, got %d", c.Replay.ChecksumEvery)
	}
	return nil
}

func Default() *Config {
	return &Config{
		Match: MatchConfig{
			Width:       320,
			Height:      240,
			StepMillis:  1000.0 / 60,
			BallSpeed:   0.2,
			PaddleSpeed: 0.15,
			Frames:      3600,
			Seed:        1,
		},
		Replay: ReplayConfig{
			CheckpointEvery: 60,
			Replays:         1,
			ChecksumEvery:   60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			ServiceName: "pongsim",
			Interval:    10 * time.Second,
			Retain:      time.Minute,
		},
	}
}
