package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Fatalf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Export.Duration != 2*time.Hour {
		t.Fatalf("unexpected export duration %s", cfg.Export.Duration)
	}
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := FromYAML([]byte("api:\n  base_url: https://events.example.com/api\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.API.BaseURL != "https://events.example.com/api" {
		t.Fatalf("base url not applied: %q", cfg.API.BaseURL)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.API.Timeout != 30*time.Second {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"relative url":  "api:\n  base_url: /api\n",
		"negative":      "retry:\n  max_retries: -1\n",
		"week start":    "calendar:\n  week_start: friday\n",
		"bad zone":      "export:\n  timezone: Mars/Olympus\n",
		"bad yaml":      "api: [",
		"negative wait": "retry:\n  base_delay: -1s\n",
	}
	for name, data := range cases {
		if _, err := FromYAML([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadAndLoadOptional(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected missing config error")
	}
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("load optional: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "evsched.yml"), []byte(GenerateDefault("http://127.0.0.1:9000/api")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:9000/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
}
