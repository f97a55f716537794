package file

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the player configuration.
type Config struct {
	// Port is a regular expression selecting the output port for MIDI port 0.
	Port string `yaml:"port,omitempty"`

	// PreferredPort is the exact name of the port to use if Port matches nothing.
	PreferredPort string `yaml:"preferred_port,omitempty"`

	// ExtraPorts are regular expressions selecting outputs for MIDI ports 1, 2, ...
	ExtraPorts []string `yaml:"extra_ports,omitempty"`

	// TickIntervalMS is how often the player advances playback, in milliseconds.
	TickIntervalMS int `yaml:"tick_interval_ms,omitempty"`

	// Tempo is the initial tempo factor.
	Tempo float64 `yaml:"tempo,omitempty"`

	// Loop restarts playback at the end of the file.
	Loop bool `yaml:"loop,omitempty"`

	// EndSleepSec is how long to keep going after the last event before stopping.
	EndSleepSec *float64 `yaml:"end_sleep_sec,omitempty"`
}

// TickInterval returns the player tick interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(WithDefault(c.TickIntervalMS, 5)) * time.Millisecond
}

// EndSleep returns the time to wait after the last event.
func (c *Config) EndSleep() time.Duration {
	sec := 0.5
	if c.EndSleepSec != nil {
		sec = *c.EndSleepSec
	}
	return time.Duration(sec * float64(time.Second))
}

// ReadConfig reads a configuration file. A missing file yields an empty configuration.
func ReadConfig(fsys fs.FS, configFile string) (*Config, error) {
	f, err := fsys.Open(configFile)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", configFile, err)
	}
	defer f.Close()
	var config Config
	err = yaml.NewDecoder(f).Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", configFile, err)
	}
	return &config, nil
}
