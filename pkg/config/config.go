// Package config loads and saves midiscore settings
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/james-see/midiscore/pkg/converter"
	"github.com/james-see/midiscore/pkg/logger"
	"github.com/james-see/midiscore/pkg/score"
)

// PianorollConfig controls piano roll rendering
type PianorollConfig struct {
	Resolution int `json:"resolution,omitempty"` // ticks per column, 0 = a sixteenth note
	Width      int `json:"width,omitempty"`
	Height     int `json:"height,omitempty"`
}

// ServerConfig controls the API server
type ServerConfig struct {
	Port int `json:"port,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	TicksPerQuarter int32           `json:"ticksPerQuarter"`
	MinDuration     float64         `json:"minDuration"`
	Unit            string          `json:"unit"`
	Sanitize        bool            `json:"sanitize"`
	TextEncoding    string          `json:"textEncoding"`
	LogLevel        string          `json:"logLevel"`
	SoundFont       string          `json:"soundFont,omitempty"`
	SampleRate      int             `json:"sampleRate"`
	Pianoroll       PianorollConfig `json:"pianoroll"`
	Server          ServerConfig    `json:"server"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TicksPerQuarter: 480,
		Unit:            "tick",
		TextEncoding:    "auto",
		LogLevel:        "info",
		SampleRate:      44100,
		Pianoroll: PianorollConfig{
			Width:  1200,
			Height: 512,
		},
		Server: ServerConfig{Port: 8080},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midiscore"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults and a
// missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.GetLogger().Debug("no config file, using defaults", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field domains
func (c *Config) Validate() error {
	if c.TicksPerQuarter < 1 || c.TicksPerQuarter > 0x7FFF {
		return fmt.Errorf("ticksPerQuarter must be in [1, 32767], got %d", c.TicksPerQuarter)
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("minDuration must not be negative, got %g", c.MinDuration)
	}
	if _, err := score.ParseUnit(c.Unit); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sampleRate must be positive, got %d", c.SampleRate)
	}
	if c.Pianoroll.Resolution < 0 {
		return fmt.Errorf("pianoroll resolution must not be negative, got %d", c.Pianoroll.Resolution)
	}
	return nil
}

// ParseOptions returns the MIDI decoding options
func (c *Config) ParseOptions() converter.ParseOptions {
	return converter.ParseOptions{Sanitize: c.Sanitize, TextEncoding: c.TextEncoding}
}

// ConverterOptions returns conversion options that keep the source
// resolution; ticksPerQuarter only applies to explicit resampling
func (c *Config) ConverterOptions() converter.Options {
	unit, err := score.ParseUnit(c.Unit)
	if err != nil {
		unit = score.UnitTick
	}
	return converter.Options{
		Parse:       c.ParseOptions(),
		Unit:        unit,
		MinDuration: c.MinDuration,
	}
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
