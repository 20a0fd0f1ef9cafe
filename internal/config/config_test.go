package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJSON = `{
  "relay": {
    "data_dir": "/tmp/relaydesk-test",
    "response_window_hours": 24,
    "reminder_schedule": "@hourly"
  },
  "operator": {
    "channel": "telegram",
    "id": "123456"
  },
  "connectors": {
    "telegram": {
      "token": "123456:ABC",
      "allow_from": [100, 200]
    }
  },
  "api": {
    "host": "0.0.0.0",
    "port": 8080,
    "api_key": "admin-key"
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Relay.DataDir != "/tmp/relaydesk-test" {
		t.Errorf("data_dir: %q", cfg.Relay.DataDir)
	}
	if cfg.Operator.ID != "123456" {
		t.Errorf("operator id: %q", cfg.Operator.ID)
	}
	if cfg.Operator.ChatID != "123456" {
		t.Errorf("operator chat_id should default to id, got %q", cfg.Operator.ChatID)
	}
	if cfg.Connectors.Telegram == nil || cfg.Connectors.Telegram.Token != "123456:ABC" {
		t.Errorf("telegram connector: %+v", cfg.Connectors.Telegram)
	}
	if len(cfg.Connectors.Telegram.AllowFrom) != 2 {
		t.Errorf("allow_from: %v", cfg.Connectors.Telegram.AllowFrom)
	}
	if cfg.API.Key != "admin-key" {
		t.Errorf("api key: %q", cfg.API.Key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"relay": {"data_dir": "/tmp/x"},
		"operator": {"id": "1"},
		"connectors": {"telegram": {"token": "t"}}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Relay.ResponseWindowHours != 24 {
		t.Errorf("expected default window 24, got %d", cfg.Relay.ResponseWindowHours)
	}
	if cfg.Relay.ReminderSchedule != "@hourly" {
		t.Errorf("expected default schedule, got %q", cfg.Relay.ReminderSchedule)
	}
	if cfg.Operator.Channel != "telegram" {
		t.Errorf("expected default operator channel, got %q", cfg.Operator.Channel)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.API.Port)
	}
}

func TestLoad_MissingOperator(t *testing.T) {
	_, err := Load(writeConfig(t, `{
		"relay": {"data_dir": "/tmp/x"},
		"connectors": {"telegram": {"token": "t"}}
	}`))
	if err == nil || !strings.Contains(err.Error(), "operator.id is required") {
		t.Fatalf("expected operator.id error, got %v", err)
	}
}

func TestLoad_NoConnectors(t *testing.T) {
	_, err := Load(writeConfig(t, `{
		"relay": {"data_dir": "/tmp/x"},
		"operator": {"id": "1"}
	}`))
	if err == nil || !strings.Contains(err.Error(), "at least one connector") {
		t.Fatalf("expected connector error, got %v", err)
	}
}

func TestLoad_OperatorChannelMustBeConfigured(t *testing.T) {
	_, err := Load(writeConfig(t, `{
		"relay": {"data_dir": "/tmp/x"},
		"operator": {"channel": "slack", "id": "U1"},
		"connectors": {"telegram": {"token": "t"}}
	}`))
	if err == nil || !strings.Contains(err.Error(), "no slack connector") {
		t.Fatalf("expected operator channel error, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RELAYDESK_DATA_DIR", "/tmp/env-test")
	t.Setenv("RELAYDESK_OPERATOR_ID", "42")
	t.Setenv("RELAYDESK_TELEGRAM_TOKEN", "tok")
	t.Setenv("RELAYDESK_TELEGRAM_ALLOW_FROM", "100, 200")
	t.Setenv("RELAYDESK_API_PORT", "9090")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Relay.DataDir != "/tmp/env-test" {
		t.Errorf("data_dir: %q", cfg.Relay.DataDir)
	}
	if cfg.Operator.ID != "42" {
		t.Errorf("operator id: %q", cfg.Operator.ID)
	}
	if cfg.Connectors.Telegram == nil || len(cfg.Connectors.Telegram.AllowFrom) != 2 {
		t.Errorf("telegram connector: %+v", cfg.Connectors.Telegram)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port: %d", cfg.API.Port)
	}
}

func TestLoadFromEnv_MissingOperator(t *testing.T) {
	t.Setenv("RELAYDESK_DATA_DIR", "/tmp/env-test")
	t.Setenv("RELAYDESK_OPERATOR_ID", "")
	t.Setenv("RELAYDESK_TELEGRAM_TOKEN", "tok")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected validation error without operator id")
	}
}
