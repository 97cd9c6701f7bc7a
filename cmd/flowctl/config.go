package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds flowctl configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	APIURL   string   `json:"api_url"`
	Token    string   `json:"token"`
	LogLevel string   `json:"log_level"`
	Timeout  duration `json:"timeout"`
}

// duration reads a Go duration string ("30s") from settings.json.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func defaultConfig() Config {
	return Config{
		APIURL:   "http://localhost:4200",
		LogLevel: "info",
	}
}

func chatflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatflow"
	}
	return filepath.Join(home, ".chatflow")
}

func settingsPath() string {
	return filepath.Join(chatflowDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("CHATFLOW_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("CHATFLOW_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("CHATFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHATFLOW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = duration(d)
		}
	}

	return cfg
}
