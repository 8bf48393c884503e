package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("maxBodyBytes = %d, want %d", cfg.Server.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if cfg.Policy.Preset != DefaultPreset {
		t.Errorf("preset = %q, want %q", cfg.Policy.Preset, DefaultPreset)
	}
	if cfg.Notify.Telegram.Enabled {
		t.Error("telegram should be disabled by default")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	// Override config dir to a temp location
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	// Clear any env overrides
	t.Setenv("AGENTRELAY_PORT", "")
	t.Setenv("AGENTRELAY_POLICY_PRESET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Policy.Preset != DefaultPreset {
		t.Errorf("expected default preset %q, got %q", DefaultPreset, cfg.Policy.Preset)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("AGENTRELAY_PORT", "")
	t.Setenv("AGENTRELAY_POLICY_PRESET", "")
	t.Setenv("AGENTRELAY_TELEGRAM_TOKEN", "")

	cfgDir := filepath.Join(tmpDir, ".agentrelay")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}

	testCfg := map[string]any{
		"workspace": "/srv/projects/demo",
		"server": map[string]any{
			"host": "0.0.0.0",
			"port": 9944,
		},
		"policy": map[string]any{
			"preset": "restrictive",
		},
		"notify": map[string]any{
			"telegram": map[string]any{
				"enabled": true,
				"token":   "file-token",
				"chatId":  77,
			},
		},
	}
	data, err := json.Marshal(testCfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Workspace != "/srv/projects/demo" {
		t.Errorf("workspace = %q", cfg.Workspace)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9944 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Policy.Preset != "restrictive" {
		t.Errorf("preset = %q", cfg.Policy.Preset)
	}
	if !cfg.Notify.Telegram.Enabled || cfg.Notify.Telegram.Token != "file-token" || cfg.Notify.Telegram.ChatID != 77 {
		t.Errorf("telegram = %+v", cfg.Notify.Telegram)
	}
	// File omitted maxBodyBytes, default must backfill.
	if cfg.Server.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("maxBodyBytes = %d, want default", cfg.Server.MaxBodyBytes)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	t.Setenv("AGENTRELAY_WORKSPACE", "/srv/projects/env")
	t.Setenv("AGENTRELAY_HOST", "10.0.0.5")
	t.Setenv("AGENTRELAY_PORT", "5100")
	t.Setenv("AGENTRELAY_MAX_BODY_BYTES", "1024")
	t.Setenv("AGENTRELAY_POLICY_PRESET", "readOnly")
	t.Setenv("AGENTRELAY_POLICY_PATH", "/etc/agentrelay/policy.json")
	t.Setenv("AGENTRELAY_TELEGRAM_TOKEN", "env-token")
	t.Setenv("AGENTRELAY_TELEGRAM_CHAT_ID", "4242")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Workspace != "/srv/projects/env" {
		t.Errorf("workspace = %q", cfg.Workspace)
	}
	if cfg.Server.Host != "10.0.0.5" || cfg.Server.Port != 5100 || cfg.Server.MaxBodyBytes != 1024 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Policy.Preset != "readOnly" || cfg.Policy.Path != "/etc/agentrelay/policy.json" {
		t.Errorf("policy = %+v", cfg.Policy)
	}
	if cfg.Notify.Telegram.Token != "env-token" || cfg.Notify.Telegram.ChatID != 4242 {
		t.Errorf("telegram = %+v", cfg.Notify.Telegram)
	}
}

func TestLoadConfig_BadPortEnvIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("AGENTRELAY_PORT", "not-a-number")
	t.Setenv("AGENTRELAY_POLICY_PRESET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d, want default %d", cfg.Server.Port, DefaultPort)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("AGENTRELAY_PORT", "")
	t.Setenv("AGENTRELAY_POLICY_PRESET", "")
	t.Setenv("AGENTRELAY_WORKSPACE", "")
	t.Setenv("AGENTRELAY_HOST", "")

	cfg := DefaultConfig()
	cfg.Policy.Preset = "development"
	cfg.Server.Port = 6001

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.Policy.Preset != "development" || loaded.Server.Port != 6001 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
