package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all fleetbot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	TMS      TMSConfig      `yaml:"tms"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Revenue  RevenueConfig  `yaml:"revenue"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	GroupChatID int64  `yaml:"group_chat_id"`

	// Zero means fall back to the group chat.
	DebugChatID   int64 `yaml:"debug_chat_id"`
	RevenueChatID int64 `yaml:"revenue_chat_id"`
}

type TMSConfig struct {
	BaseURL   string  `yaml:"base_url"`
	Email     string  `yaml:"email"`
	Password  string  `yaml:"password"`
	ProjectID int     `yaml:"project_id"`
	OrgID     string  `yaml:"org_id"`
	UnitIDs   []int64 `yaml:"unit_ids"`
	PageSize  int     `yaml:"page_size"`
}

type MonitorConfig struct {
	IntervalSeconds int            `yaml:"interval_seconds"`
	OnlyBad         bool           `yaml:"only_bad"`
	DebugOnBad      bool           `yaml:"debug_on_bad"`
	Suppress        []SuppressRule `yaml:"suppress"`
}

// SuppressRule mutes one exact (severity, text) problem pair.
type SuppressRule struct {
	Severity string `yaml:"severity"`
	Text     string `yaml:"text"`
}

type RevenueConfig struct {
	DailyAt        string `yaml:"daily_at"` // "HH:MM" local time
	Timezone       string `yaml:"timezone"`
	PartnerIssuer  string `yaml:"partner_issuer"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TMS: TMSConfig{
			BaseURL:   "https://tms.termt.com",
			ProjectID: 29,
			PageSize:  1500,
		},
		Monitor: MonitorConfig{
			IntervalSeconds: 300,
			OnlyBad:         true,
			DebugOnBad:      true,
		},
		Revenue: RevenueConfig{
			DailyAt:        "01:00",
			Timezone:       "Europe/Berlin",
			PartnerIssuer:  "Yandex.Wash",
			TimeoutSeconds: 300,
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Storage: StorageConfig{
			DBPath: "fleetbot.db",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Secrets may arrive via environment instead of the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets the environment supply secrets so they stay out of
// the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TMS_EMAIL"); v != "" {
		c.TMS.Email = v
	}
	if v := os.Getenv("TMS_PASSWORD"); v != "" {
		c.TMS.Password = v
	}
}

// PollInterval returns the status poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// RevenueTimeout bounds one paginated transactions fetch.
func (c *Config) RevenueTimeout() time.Duration {
	return time.Duration(c.Revenue.TimeoutSeconds) * time.Second
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Revenue.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Revenue.Timezone, err)
	}
	return loc, nil
}

// DebugChat returns the debug chat id, falling back to the group chat.
func (c *Config) DebugChat() int64 {
	if c.Telegram.DebugChatID != 0 {
		return c.Telegram.DebugChatID
	}
	return c.Telegram.GroupChatID
}

// RevenueChat returns the revenue chat id, falling back to the group chat.
func (c *Config) RevenueChat() int64 {
	if c.Telegram.RevenueChatID != 0 {
		return c.Telegram.RevenueChatID
	}
	return c.Telegram.GroupChatID
}
