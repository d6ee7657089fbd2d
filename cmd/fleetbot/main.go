package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/washops/fleetbot/internal/config"
	"github.com/washops/fleetbot/internal/monitor"
	"github.com/washops/fleetbot/internal/revenue"
	"github.com/washops/fleetbot/internal/tms"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fleetbot",
	Short: "Car wash fleet monitor and revenue reporter",
	Long: `fleetbot polls the TMS API for the status of a car wash fleet, pushes
failure/recovery notifications to Telegram, and aggregates the payment feed
into per-channel revenue reports.

Secrets (BOT_TOKEN, TMS_EMAIL, TMS_PASSWORD) may come from the environment
instead of the config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		return config.Validate(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch and print the fleet summary once",
	RunE:  runStatus,
}

var revenueCmd = &cobra.Command{
	Use:   "revenue [from [to]]",
	Short: "Fetch and print a revenue report (dates as YYYY-MM-DD, default today)",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runRevenue,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "fleetbot.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(revenueCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTMSClient() *tms.Client {
	return tms.New(tms.Config{
		BaseURL:  cfg.TMS.BaseURL,
		Email:    cfg.TMS.Email,
		Password: cfg.TMS.Password,
	}, logger.Named("tms"))
}

func newMonitorService(client *tms.Client) *monitor.Service {
	rules := make([]monitor.SuppressionRule, 0, len(cfg.Monitor.Suppress))
	for _, r := range cfg.Monitor.Suppress {
		rules = append(rules, monitor.SuppressionRule{Severity: r.Severity, Text: r.Text})
	}
	return monitor.NewService(client, monitor.NewEvaluator(rules), monitor.Config{
		ProjectID:      int64(cfg.TMS.ProjectID),
		UnitIDs:        cfg.TMS.UnitIDs,
		OnlyBad:        cfg.Monitor.OnlyBad,
		HasCredentials: cfg.TMS.Email != "" && cfg.TMS.Password != "",
	}, logger.Named("monitor"))
}

func newRevenueService(client *tms.Client) *revenue.Service {
	agg := revenue.NewAggregator(cfg.Revenue.PartnerIssuer, logger.Named("revenue"))
	return revenue.NewService(client, agg, cfg.TMS.OrgID, cfg.TMS.PageSize, logger.Named("revenue"))
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	text, err := newMonitorService(newTMSClient()).Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runRevenue(cmd *cobra.Command, args []string) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from
	if len(args) >= 1 {
		if from, err = time.ParseInLocation("2006-01-02", args[0], loc); err != nil {
			return fmt.Errorf("parse from %q: %w", args[0], err)
		}
		to = from
	}
	if len(args) == 2 {
		if to, err = time.ParseInLocation("2006-01-02", args[1], loc); err != nil {
			return fmt.Errorf("parse to %q: %w", args[1], err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RevenueTimeout())
	defer cancel()

	text, err := newRevenueService(newTMSClient()).ReportText(ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
