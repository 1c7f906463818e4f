// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/ieltsmock/internal/recording"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	API      APIConfig      `toml:"api"`
	Speaking SpeakingConfig `toml:"speaking"`
	Recorder RecorderConfig `toml:"recorder"`
	Practice PracticeConfig `toml:"practice"`
}

// APIConfig maps backend connection settings.
type APIConfig struct {
	BaseURL *string `toml:"base-url"`
	Timeout *string `toml:"timeout"`
}

// SpeakingConfig overrides the speaking part timings, in seconds.
type SpeakingConfig struct {
	Part1Max  *int `toml:"part1-max"`
	Part2Prep *int `toml:"part2-prep"`
	Part2Max  *int `toml:"part2-max"`
	Part3Max  *int `toml:"part3-max"`
}

// RecorderConfig selects the audio capture command. "{file}" is replaced by the output path.
type RecorderConfig struct {
	Command []string `toml:"command"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Section    *string  `toml:"section"`
	FocusWeak  *bool    `toml:"focus-weak"`
	WeakFactor *float64 `toml:"weak-factor"`
	WeakWindow *int     `toml:"weak-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// RequestTimeout parses the configured timeout, falling back to def.
func (c APIConfig) RequestTimeout(def time.Duration) (time.Duration, error) {
	if c.Timeout == nil || *c.Timeout == "" {
		return def, nil
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid api timeout %q: %w", *c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("api timeout must be positive")
	}
	return d, nil
}

// Profiles applies the configured timings on top of base.
func (c SpeakingConfig) Profiles(base recording.Profiles) recording.Profiles {
	if c.Part1Max != nil && *c.Part1Max > 0 {
		base.Part1.MaxSeconds = *c.Part1Max
	}
	if c.Part2Prep != nil && *c.Part2Prep >= 0 {
		base.Part2.PrepSeconds = *c.Part2Prep
	}
	if c.Part2Max != nil && *c.Part2Max > 0 {
		base.Part2.MaxSeconds = *c.Part2Max
	}
	if c.Part3Max != nil && *c.Part3Max > 0 {
		base.Part3.MaxSeconds = *c.Part3Max
	}
	return base
}
