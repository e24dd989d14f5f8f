// Package config loads the capture policy from environment variables and
// builds the settings and filter registry the core consumes.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashleyglee/exceptional/pkg/exceptional"
)

// Config holds all configuration for the sample capture server.
type Config struct {
	Server  ServerConfig
	Capture CaptureConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type CaptureConfig struct {
	ApplicationName    string
	MachineName        string
	RollupPerServer    bool
	FormFilters        map[string]string
	CookieFilters      map[string]string
	DataIncludePattern string
}

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("SAMPLE_PORT", 8080),
			Env:  envString("SAMPLE_ENV", "development"),
		},
		Capture: CaptureConfig{
			ApplicationName:    envString("EXCEPTIONAL_APP_NAME", "sample"),
			MachineName:        os.Getenv("EXCEPTIONAL_MACHINE_NAME"),
			RollupPerServer:    envBool("EXCEPTIONAL_ROLLUP_PER_SERVER", false),
			FormFilters:        parseFilters(os.Getenv("EXCEPTIONAL_FORM_FILTERS")),
			CookieFilters:      parseFilters(os.Getenv("EXCEPTIONAL_COOKIE_FILTERS")),
			DataIncludePattern: os.Getenv("EXCEPTIONAL_DATA_INCLUDE_PATTERN"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SAMPLE_PORT must be in 1..65535, got %d", c.Server.Port)
	}
	if p := c.Capture.DataIncludePattern; p != "" {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("EXCEPTIONAL_DATA_INCLUDE_PATTERN is not a valid regexp: %w", err)
		}
	}
	return nil
}

// Settings builds the core capture settings. The data-include pattern is
// compiled case-insensitively, which validate has already checked.
func (c *Config) Settings() *exceptional.Settings {
	s := &exceptional.Settings{
		DefaultApplicationName: c.Capture.ApplicationName,
		MachineName:            c.Capture.MachineName,
		RollupPerServer:        c.Capture.RollupPerServer,
	}
	if p := c.Capture.DataIncludePattern; p != "" {
		s.DataIncludePattern = regexp.MustCompile("(?i)" + p)
	}
	return s
}

// FilterRegistry builds a registry populated with the configured form and
// cookie replacements.
func (c *Config) FilterRegistry() *exceptional.FilterRegistry {
	reg := exceptional.NewFilterRegistry()
	for name, replacement := range c.Capture.FormFilters {
		reg.SetFormFilter(name, replacement)
	}
	for name, replacement := range c.Capture.CookieFilters {
		reg.SetCookieFilter(name, replacement)
	}
	return reg
}

// parseFilters reads comma-separated name=replacement entries. A missing or
// empty replacement blanks the value ("password=,token=[redacted]").
func parseFilters(raw string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, replacement, _ := strings.Cut(entry, "=")
		if name == "" {
			continue
		}
		out[name] = replacement
	}
	return out
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
