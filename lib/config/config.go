// Package config loads the controller configuration: built-in defaults, an
// optional YAML file, then WATCHOUT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"watchout/lib/adapter"
	"watchout/lib/watchout"
)

const EnvPrefix = "WATCHOUT_"

// lastNote is the highest button note an X-Touch sends.
const lastNote = 103

type Config struct {
	Device watchout.Config `yaml:"device"`
	Log    LogConfig       `yaml:"log"`
	Panel  PanelConfig     `yaml:"panel"`
	XTouch XTouchConfig    `yaml:"xtouch"`
	Deck   DeckConfig      `yaml:"deck"`
}

type LogConfig struct {
	// File enables a rotating log file instead of stderr.
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type PanelConfig struct {
	Listen string `yaml:"listen" env:"LISTEN"`
}

type XTouchConfig struct {
	// Port is matched case-insensitively against MIDI port names.
	Port     string                  `yaml:"port"`
	Extender bool                    `yaml:"extender"`
	Buttons  map[int]adapter.Binding `yaml:"buttons"`

	// Conditions maps a button note to the layer condition it toggles.
	Conditions map[int]int             `yaml:"conditions"`
	// Faders maps a fader to the input it sets.
	Faders     map[int]string          `yaml:"faders"`
	// Pedals binds foot switches 1 and 2.
	Pedals     map[int]adapter.Binding `yaml:"pedals"`
}

type DeckConfig struct {
	Brightness int                     `yaml:"brightness"`
	Keys       map[int]adapter.Binding `yaml:"keys"`
}

func Default() *Config {
	return &Config{
		Device: watchout.Config{Type: watchout.Production},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Panel: PanelConfig{Listen: ":8080"},
		XTouch: XTouchConfig{
			Port: "x-touch",
		},
		Deck: DeckConfig{Brightness: 80},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ParseEnv applies WATCHOUT_* environment variables to cfg.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Device.Type == "" {
		c.Device.Type = watchout.Production
	}
	if err := c.Device.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Deck.Brightness < 0 || c.Deck.Brightness > 100 {
		errs = append(errs, fmt.Errorf("deck brightness %d: want 0-100", c.Deck.Brightness))
	}

	for note, b := range c.XTouch.Buttons {
		if note < 0 || note > lastNote {
			errs = append(errs, fmt.Errorf("xtouch button %d: want note 0-%d", note, lastNote))
		}
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("xtouch button %d: %w", note, err))
		}
	}
	for note, cond := range c.XTouch.Conditions {
		if note < 0 || note > lastNote {
			errs = append(errs, fmt.Errorf("xtouch button %d: want note 0-%d", note, lastNote))
		}
		if cond < 0 || cond >= watchout.MaxConditions {
			errs = append(errs, fmt.Errorf("xtouch button %d: condition %d out of range", note, cond))
		}
		if _, dup := c.XTouch.Buttons[note]; dup {
			errs = append(errs, fmt.Errorf("xtouch button %d bound twice", note))
		}
	}
	for fader, input := range c.XTouch.Faders {
		if fader < 0 || fader > 8 {
			errs = append(errs, fmt.Errorf("xtouch fader %d out of range", fader))
		}
		if input == "" {
			errs = append(errs, fmt.Errorf("xtouch fader %d: empty input name", fader))
		}
	}
	for sw, b := range c.XTouch.Pedals {
		if sw != 1 && sw != 2 {
			errs = append(errs, fmt.Errorf("xtouch pedal %d: want 1 or 2", sw))
		}
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("xtouch pedal %d: %w", sw, err))
		}
	}
	for key, b := range c.Deck.Keys {
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("deck key %d: %w", key, err))
		}
	}

	return errors.Join(errs...)
}
