package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Config holds flowstore server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	// Tokens maps bearer tokens to tenants. Empty disables authentication.
	Tokens            map[string]string `json:"tokens"`
	EncodeGraphAsText bool              `json:"encode_graph_as_text"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:        ":4200",
		DBPath:            filepath.Join(chatflowDir(), "flows.db"),
		LogLevel:          "info",
		EncodeGraphAsText: true,
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
	if v := os.Getenv("CHATFLOW_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CHATFLOW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CHATFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHATFLOW_TOKENS"); v != "" {
		cfg.Tokens = parseTokens(v)
	}
	if v := os.Getenv("CHATFLOW_ENCODE_GRAPH_AS_TEXT"); v != "" {
		cfg.EncodeGraphAsText = v == "true" || v == "1"
	}

	return cfg
}

// parseTokens reads "token=tenant,token=tenant". Malformed pairs are skipped.
func parseTokens(s string) map[string]string {
	tokens := make(map[string]string)
	for pair := range strings.SplitSeq(s, ",") {
		token, tenant, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" {
			continue
		}
		tokens[token] = tenant
	}
	return tokens
}
