package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"
)

const (
	configFileName      = ".nittei.toml"
	defaultListen       = "127.0.0.1:8085"
	defaultDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"
)

type Config struct {
	ClientID       string                  `toml:"client_id"`
	ClientSecret   string                  `toml:"client_secret"`
	Listen         string                  `toml:"listen"`
	VerbosityLevel int                     `toml:"verbosity_level"`
	Timezone       string                  `toml:"timezone"`
	RequestTimeout duration                `toml:"request_timeout"`
	DiscoveryURL   string                  `toml:"discovery_url"`
	View           ViewConfig              `toml:"view"`
	CalDAVs        map[string]CalDAVConfig `toml:"caldavs"`

	location *time.Location
}

type ViewConfig struct {
	DayStartHour int `toml:"day_start_hour"`
	DayEndHour   int `toml:"day_end_hour"`
	SlotMinutes  int `toml:"slot_minutes"`
}

// CalDAVConfig describes one read-only overlay calendar.
type CalDAVConfig struct {
	Name      string `toml:"name"`
	ServerURL string `toml:"server_url"`
	Calendar  string `toml:"calendar"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// duration lets request_timeout be written as "10s" in TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		VerbosityLevel: 1,
		RequestTimeout: duration{10 * time.Second},
		DiscoveryURL:   defaultDiscoveryURL,
		View: ViewConfig{
			DayStartHour: 7,
			DayEndHour:   23,
			SlotMinutes:  30,
		},
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nittei-gerorin")
}

// loadDotEnv loads the first .env found: the current dir, then the config dir.
func loadDotEnv() {
	tryPaths := []string{".env"}
	if dir := configDir(); dir != "" {
		tryPaths = append(tryPaths, filepath.Join(dir, ".env"))
	}
	for _, p := range tryPaths {
		if _, err := os.Stat(p); err == nil {
			if loadErr := gotenv.Load(p); loadErr == nil {
				return
			}
		}
	}
}

// readConfig reads filename, falling back to the config dir. When neither
// exists the defaults are used so the page can still explain what is missing.
func readConfig(filename string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil && !filepath.IsAbs(filename) && configDir() != "" {
		data, err = os.ReadFile(filepath.Join(configDir(), filename))
	}
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NITTEI_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("NITTEI_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv("NITTEI_LISTEN"); v != "" {
		c.Listen = v
	}
}

// Validate checks everything except the client ID, which is reported at
// login time instead.
func (c *Config) Validate() error {
	v := c.View
	if v.DayStartHour < 0 || v.DayEndHour > 24 || v.DayStartHour >= v.DayEndHour {
		return fmt.Errorf("invalid view hours %d-%d", v.DayStartHour, v.DayEndHour)
	}
	if v.SlotMinutes <= 0 || 60%v.SlotMinutes != 0 {
		return fmt.Errorf("slot_minutes must divide 60, got %d", v.SlotMinutes)
	}
	if c.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}

	loc := time.Local
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		loc = l
	}
	c.location = loc

	for name, server := range c.CalDAVs {
		if server.ServerURL == "" || server.Calendar == "" {
			return fmt.Errorf("caldav server %q needs server_url and calendar", name)
		}
	}
	return nil
}

// Location is the display time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
