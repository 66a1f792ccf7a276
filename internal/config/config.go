package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models evsched.yml.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Retry struct {
		MaxRetries int           `yaml:"max_retries"`
		BaseDelay  time.Duration `yaml:"base_delay"`
	} `yaml:"retry"`
	Calendar struct {
		WeekStart string `yaml:"week_start"`
	} `yaml:"calendar"`
	Export struct {
		Duration     time.Duration `yaml:"duration"`
		Timezone     string        `yaml:"timezone"`
		CalendarName string        `yaml:"calendar_name"`
	} `yaml:"export"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with evs config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config.api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config.api.timeout must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("config.retry.max_retries must not be negative")
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("config.retry.base_delay must not be negative")
	}
	switch strings.ToLower(c.Calendar.WeekStart) {
	case "", "sunday", "monday", "saturday":
	default:
		return fmt.Errorf("config.calendar.week_start must be sunday, monday or saturday")
	}
	if c.Export.Duration < 0 {
		return fmt.Errorf("config.export.duration must not be negative")
	}
	if _, err := c.ExportLocation(); err != nil {
		return err
	}
	return nil
}

// ExportLocation resolves export.timezone; empty means the local zone.
func (c *Config) ExportLocation() (*time.Location, error) {
	if c.Export.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.export.timezone: %w", err)
	}
	return loc, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "evsched.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return fmt.Sprintf(defaultTemplate, baseURL)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(""), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

const DefaultBaseURL = "http://localhost:8080/api"

// Default returns the default Config struct.
func Default(baseURL string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(baseURL))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys left out
// keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `api:
  base_url: %s
  timeout: 30s

retry:
  max_retries: 3
  base_delay: 1s

calendar:
  week_start: monday

export:
  duration: 2h
  timezone: ""
  calendar_name: Events
`
