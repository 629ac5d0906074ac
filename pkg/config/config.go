// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Memory    MemoryConfig    `json:"memory"`
	Swarm     SwarmConfig     `json:"swarm"`
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

type AgentDefaults struct {
	Workspace   string  `json:"workspace" env:"OPENSPORE_WORKSPACE"`
	Model       string  `json:"model" env:"OPENSPORE_MODEL"`
	MaxDepth    int     `json:"max_depth" env:"OPENSPORE_MAX_DEPTH"`
	MaxTokens   int     `json:"max_tokens" env:"OPENSPORE_MAX_TOKENS"`
	Temperature float64 `json:"temperature" env:"OPENSPORE_TEMPERATURE"`
}

type ProvidersConfig struct {
	OpenRouter ProviderConfig `json:"openrouter"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"OPENROUTER_API_KEY"`
	APIBase string `json:"api_base" env:"OPENROUTER_API_BASE"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled" env:"OPENSPORE_TELEGRAM_ENABLED"`
	Token     string   `json:"token" env:"OPENSPORE_TELEGRAM_TOKEN"`
	AllowFrom []string `json:"allow_from,omitempty"`
}

type DiscordConfig struct {
	Enabled   bool     `json:"enabled" env:"OPENSPORE_DISCORD_ENABLED"`
	Token     string   `json:"token" env:"OPENSPORE_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from,omitempty"`
}

type GatewayConfig struct {
	Enabled bool   `json:"enabled" env:"OPENSPORE_GATEWAY_ENABLED"`
	Host    string `json:"host" env:"OPENSPORE_GATEWAY_HOST"`
	Port    int    `json:"port" env:"OPENSPORE_GATEWAY_PORT"`
}

type HeartbeatConfig struct {
	Enabled bool   `json:"enabled" env:"OPENSPORE_HEARTBEAT_ENABLED"`
	Cron    string `json:"cron" env:"OPENSPORE_HEARTBEAT_CRON"`
	Prompt  string `json:"prompt,omitempty"`
}

type MemoryConfig struct {
	// RecentWriteTTLSeconds bounds how long a self-written path is
	// remembered for the filesystem watcher suppression predicate.
	RecentWriteTTLSeconds int `json:"recent_write_ttl_seconds" env:"OPENSPORE_MEMORY_RECENT_WRITE_TTL"`
}

type SwarmConfig struct {
	MaxSpores      int `json:"max_spores" env:"OPENSPORE_SWARM_MAX_SPORES"`
	TimeoutSeconds int `json:"timeout_seconds" env:"OPENSPORE_SWARM_TIMEOUT_SECONDS"`
}

func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:   "~/.openspore/workspace",
				Model:       "google/gemini-2.0-flash-001",
				MaxDepth:    12,
				MaxTokens:   8192,
				Temperature: 0.7,
			},
		},
		Providers: ProvidersConfig{
			OpenRouter: ProviderConfig{
				APIBase: "https://openrouter.ai/api/v1",
			},
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8793,
		},
		Heartbeat: HeartbeatConfig{
			Cron:   "*/30 * * * *",
			Prompt: "Heartbeat: review your journal and pending tasks. Act if something needs attention, otherwise reply HEARTBEAT_OK.",
		},
		Memory: MemoryConfig{
			RecentWriteTTLSeconds: 10,
		},
		Swarm: SwarmConfig{
			MaxSpores:      6,
			TimeoutSeconds: 180,
		},
	}
}

// DefaultConfigPath returns ~/.openspore/config.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".openspore", "config.json")
}

// LoadConfig reads the JSON config file and applies environment
// variable overrides on top. A missing file is not an error: defaults
// plus environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) WorkspacePath() string {
	return expandHome(c.Agents.Defaults.Workspace)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
