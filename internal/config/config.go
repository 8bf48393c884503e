package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 4710
	DefaultMaxBodyBytes = 64 << 10
	DefaultPreset       = "interactive"
)

type Config struct {
	Workspace string       `json:"workspace"`
	Server    ServerConfig `json:"server"`
	Policy    PolicyConfig `json:"policy"`
	Notify    NotifyConfig `json:"notify"`
}

// ServerConfig is the sideband HTTP listener.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	MaxBodyBytes int64  `json:"maxBodyBytes,omitempty"`
}

type PolicyConfig struct {
	// Preset names the base permission preset; a workspace policy file
	// merges on top of it.
	Preset string `json:"preset"`
	// Path overrides the default per-workspace policy file location.
	Path string `json:"path,omitempty"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
	Proxy   string `json:"proxy,omitempty"`
}

func DefaultConfig() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Workspace: cwd,
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Policy: PolicyConfig{
			Preset: DefaultPreset,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".agentrelay")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if ws := os.Getenv("AGENTRELAY_WORKSPACE"); ws != "" {
		cfg.Workspace = ws
	}
	if host := os.Getenv("AGENTRELAY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("AGENTRELAY_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if max := os.Getenv("AGENTRELAY_MAX_BODY_BYTES"); max != "" {
		if parsed, err := strconv.ParseInt(max, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = parsed
		}
	}
	if preset := os.Getenv("AGENTRELAY_POLICY_PRESET"); preset != "" {
		cfg.Policy.Preset = preset
	}
	if path := os.Getenv("AGENTRELAY_POLICY_PATH"); path != "" {
		cfg.Policy.Path = path
	}
	if token := os.Getenv("AGENTRELAY_TELEGRAM_TOKEN"); token != "" {
		cfg.Notify.Telegram.Token = token
	}
	if chat := os.Getenv("AGENTRELAY_TELEGRAM_CHAT_ID"); chat != "" {
		if parsed, err := strconv.ParseInt(chat, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = parsed
		}
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Policy.Preset == "" {
		cfg.Policy.Preset = DefaultPreset
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
