package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level relaydesk configuration.
type Config struct {
	Relay      RelayConfig     `json:"relay"`
	Operator   OperatorConfig  `json:"operator"`
	Connectors ConnectorConfig `json:"connectors"`
	API        APIConfig       `json:"api"`
}

// RelayConfig holds relay-level settings.
type RelayConfig struct {
	DataDir             string `json:"data_dir"`
	ResponseWindowHours int    `json:"response_window_hours"` // default 24
	ReminderSchedule    string `json:"reminder_schedule"`     // cron expression, default @hourly
}

// OperatorConfig identifies the single identity authorized to answer tickets.
type OperatorConfig struct {
	Channel string `json:"channel"` // connector name, default "telegram"
	ID      string `json:"id"`      // sender identifier on that connector
	ChatID  string `json:"chat_id,omitempty"`
}

// ConnectorConfig holds settings for external platform connectors.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds Slack app settings (Socket Mode).
type SlackConfig struct {
	BotToken string   `json:"bot_token"`
	AppToken string   `json:"app_token"`
	Channels []string `json:"channels,omitempty"`
}

// APIConfig holds admin API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds the config from environment variables with the
// RELAYDESK_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Relay: RelayConfig{
			DataDir:             getenv("RELAYDESK_DATA_DIR", "/data"),
			ResponseWindowHours: getenvInt("RELAYDESK_RESPONSE_WINDOW_HOURS", 24),
			ReminderSchedule:    getenv("RELAYDESK_REMINDER_SCHEDULE", "@hourly"),
		},
		Operator: OperatorConfig{
			Channel: getenv("RELAYDESK_OPERATOR_CHANNEL", "telegram"),
			ID:      os.Getenv("RELAYDESK_OPERATOR_ID"),
			ChatID:  os.Getenv("RELAYDESK_OPERATOR_CHAT_ID"),
		},
		API: APIConfig{
			Host: getenv("RELAYDESK_API_HOST", "0.0.0.0"),
			Port: getenvInt("RELAYDESK_API_PORT", 8080),
			Key:  os.Getenv("RELAYDESK_API_KEY"),
		},
	}

	if token := os.Getenv("RELAYDESK_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("RELAYDESK_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: RELAYDESK_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}

	if botToken := os.Getenv("RELAYDESK_SLACK_BOT_TOKEN"); botToken != "" {
		cfg.Connectors.Slack = &SlackConfig{
			BotToken: botToken,
			AppToken: os.Getenv("RELAYDESK_SLACK_APP_TOKEN"),
		}
		if channels := os.Getenv("RELAYDESK_SLACK_CHANNELS"); channels != "" {
			cfg.Connectors.Slack.Channels = splitList(channels)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Relay.ResponseWindowHours <= 0 {
		c.Relay.ResponseWindowHours = 24
	}
	if c.Relay.ReminderSchedule == "" {
		c.Relay.ReminderSchedule = "@hourly"
	}
	if c.Operator.Channel == "" {
		c.Operator.Channel = "telegram"
	}
	if c.Operator.ChatID == "" {
		c.Operator.ChatID = c.Operator.ID
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Relay.DataDir == "" {
		errs = append(errs, "relay.data_dir is required")
	}
	if c.Operator.ID == "" {
		errs = append(errs, "operator.id is required")
	}

	if c.Connectors.Telegram == nil && c.Connectors.Slack == nil {
		errs = append(errs, "at least one connector is required")
	}
	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if c.Connectors.Slack != nil {
		if c.Connectors.Slack.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
		if c.Connectors.Slack.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
	}

	switch c.Operator.Channel {
	case "telegram":
		if c.Connectors.Telegram == nil {
			errs = append(errs, "operator.channel is telegram but no telegram connector is configured")
		}
	case "slack":
		if c.Connectors.Slack == nil {
			errs = append(errs, "operator.channel is slack but no slack connector is configured")
		}
	default:
		errs = append(errs, fmt.Sprintf("operator.channel %q is not a known connector", c.Operator.Channel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
