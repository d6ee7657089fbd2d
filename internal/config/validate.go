package config

import (
	"fmt"
	"time"
)

// Validate checks structural correctness only. It MUST NOT mutate the
// configuration. Absent credentials, unit ids or bot token are legal here:
// the daemon reports those as runtime configuration errors, and read-only
// commands work without them.
func Validate(cfg *Config) error {
	if cfg.TMS.BaseURL == "" {
		return fmt.Errorf("tms.base_url must not be empty")
	}
	if cfg.TMS.ProjectID <= 0 {
		return fmt.Errorf("tms.project_id must be positive, got %d", cfg.TMS.ProjectID)
	}
	if cfg.TMS.PageSize <= 0 {
		return fmt.Errorf("tms.page_size must be positive, got %d", cfg.TMS.PageSize)
	}
	for _, id := range cfg.TMS.UnitIDs {
		if id <= 0 {
			return fmt.Errorf("tms.unit_ids: id %d must be positive", id)
		}
	}

	if cfg.Monitor.IntervalSeconds <= 0 {
		return fmt.Errorf("monitor.interval_seconds must be positive, got %d", cfg.Monitor.IntervalSeconds)
	}
	for i, r := range cfg.Monitor.Suppress {
		if r.Severity == "" && r.Text == "" {
			return fmt.Errorf("monitor.suppress[%d]: severity and text are both empty", i)
		}
	}

	if _, err := time.Parse("15:04", cfg.Revenue.DailyAt); err != nil {
		return fmt.Errorf("revenue.daily_at %q: want HH:MM", cfg.Revenue.DailyAt)
	}
	if _, err := time.LoadLocation(cfg.Revenue.Timezone); err != nil {
		return fmt.Errorf("revenue.timezone %q: %w", cfg.Revenue.Timezone, err)
	}
	if cfg.Revenue.TimeoutSeconds <= 0 {
		return fmt.Errorf("revenue.timeout_seconds must be positive, got %d", cfg.Revenue.TimeoutSeconds)
	}
	if cfg.Revenue.PartnerIssuer == "" {
		return fmt.Errorf("revenue.partner_issuer must not be empty")
	}

	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path must not be empty")
	}

	return nil
}
