package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearSecretEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TMS_EMAIL", "")
	t.Setenv("TMS_PASSWORD", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://tms.termt.com", cfg.TMS.BaseURL)
	assert.Equal(t, 29, cfg.TMS.ProjectID)
	assert.Equal(t, 1500, cfg.TMS.PageSize)
	assert.Equal(t, 300, cfg.Monitor.IntervalSeconds)
	assert.True(t, cfg.Monitor.OnlyBad)
	assert.True(t, cfg.Monitor.DebugOnBad)
	assert.Equal(t, "01:00", cfg.Revenue.DailyAt)
	assert.Equal(t, "Europe/Berlin", cfg.Revenue.Timezone)
	assert.Equal(t, "Yandex.Wash", cfg.Revenue.PartnerIssuer)
	assert.Equal(t, "fleetbot.db", cfg.Storage.DBPath)

	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	clearSecretEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	clearSecretEnv(t)

	path := writeConfig(t, `
telegram:
  group_chat_id: -100200300
tms:
  email: ops@washops.example
  unit_ids: [101, 202]
monitor:
  interval_seconds: 60
  suppress:
    - severity: warning
      text: "door ajar"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(-100200300), cfg.Telegram.GroupChatID)
	assert.Equal(t, "ops@washops.example", cfg.TMS.Email)
	assert.Equal(t, []int64{101, 202}, cfg.TMS.UnitIDs)
	assert.Equal(t, 60, cfg.Monitor.IntervalSeconds)
	require.Len(t, cfg.Monitor.Suppress, 1)
	assert.Equal(t, SuppressRule{Severity: "warning", Text: "door ajar"}, cfg.Monitor.Suppress[0])

	// untouched keys keep their defaults
	assert.Equal(t, "https://tms.termt.com", cfg.TMS.BaseURL)
	assert.Equal(t, 1500, cfg.TMS.PageSize)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("TMS_EMAIL", "env@washops.example")
	t.Setenv("TMS_PASSWORD", "env-secret")

	path := writeConfig(t, `
telegram:
  bot_token: file-token
tms:
  email: file@washops.example
  password: file-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "env@washops.example", cfg.TMS.Email)
	assert.Equal(t, "env-secret", cfg.TMS.Password)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "telegram: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty credentials are fine", func(c *Config) { c.TMS.Email, c.TMS.Password = "", "" }, ""},
		{"empty unit ids are fine", func(c *Config) { c.TMS.UnitIDs = nil }, ""},
		{"empty bot token is fine", func(c *Config) { c.Telegram.BotToken = "" }, ""},
		{"empty base url", func(c *Config) { c.TMS.BaseURL = "" }, "base_url"},
		{"zero project", func(c *Config) { c.TMS.ProjectID = 0 }, "project_id"},
		{"zero page size", func(c *Config) { c.TMS.PageSize = 0 }, "page_size"},
		{"negative unit id", func(c *Config) { c.TMS.UnitIDs = []int64{-1} }, "unit_ids"},
		{"zero interval", func(c *Config) { c.Monitor.IntervalSeconds = 0 }, "interval_seconds"},
		{"empty suppress rule", func(c *Config) { c.Monitor.Suppress = []SuppressRule{{}} }, "suppress"},
		{"bad daily_at", func(c *Config) { c.Revenue.DailyAt = "25:99" }, "daily_at"},
		{"bad timezone", func(c *Config) { c.Revenue.Timezone = "Mars/Olympus" }, "timezone"},
		{"zero revenue timeout", func(c *Config) { c.Revenue.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"empty partner", func(c *Config) { c.Revenue.PartnerIssuer = "" }, "partner_issuer"},
		{"empty listen", func(c *Config) { c.Server.Listen = "" }, "listen"},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }, "db_path"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestChatFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telegram.GroupChatID = -1

	assert.Equal(t, int64(-1), cfg.DebugChat())
	assert.Equal(t, int64(-1), cfg.RevenueChat())

	cfg.Telegram.DebugChatID = -2
	cfg.Telegram.RevenueChatID = -3
	assert.Equal(t, int64(-2), cfg.DebugChat())
	assert.Equal(t, int64(-3), cfg.RevenueChat())
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "5m0s", cfg.PollInterval().String())
	assert.Equal(t, "5m0s", cfg.RevenueTimeout().String())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}
