package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/washops/fleetbot/internal/api"
	"github.com/washops/fleetbot/internal/dispatch"
	"github.com/washops/fleetbot/internal/monitor"
	"github.com/washops/fleetbot/internal/repository"
	"github.com/washops/fleetbot/internal/sched"
	"github.com/washops/fleetbot/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.GroupChatID == 0 {
		return fmt.Errorf("serve needs telegram.bot_token and telegram.group_chat_id")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.InitDB(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	alerts := repository.NewAlertRepo(db)

	client := newTMSClient()
	client.OnTokenRefresh = func() {
		logger.Info("tms token refreshed")
	}

	mon := newMonitorService(client)
	rev := newRevenueService(client)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram connect: %w", err)
	}
	logger.Info("telegram connected", zap.String("bot", botAPI.Self.UserName))

	sink := telegram.NewSink(botAPI, logger.Named("telegram"))
	disp := dispatch.NewDispatcher(sink, alerts, dispatch.Chats{
		Group:   cfg.Telegram.GroupChatID,
		Debug:   cfg.DebugChat(),
		Revenue: cfg.RevenueChat(),
	}, cfg.Monitor.DebugOnBad, logger.Named("dispatch"))

	jobs := sched.New(loc, logger.Named("sched"))

	// The scheduler skips a tick while the previous one is still running,
	// so the closure owns the table without further locking.
	prev := make(monitor.BadStateTable)
	poll := func() {
		cycleCtx, cancel := context.WithTimeout(ctx, cfg.PollInterval())
		defer cancel()
		res := mon.Run(cycleCtx, prev)
		prev = res.Table
		disp.DeliverCycle(cycleCtx, res)
	}
	jobs.Every(cfg.PollInterval(), "status-poll", poll)

	err = jobs.Daily(cfg.Revenue.DailyAt, "daily-revenue", func() {
		dayCtx, cancel := context.WithTimeout(ctx, cfg.RevenueTimeout())
		defer cancel()
		y := time.Now().In(loc).AddDate(0, 0, -1)
		day := time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, loc)
		text, err := rev.ReportText(dayCtx, day, day)
		if err != nil {
			logger.Error("daily revenue failed", zap.Error(err))
			return
		}
		disp.DeliverRevenue(dayCtx, text)
	})
	if err != nil {
		return err
	}

	bot := telegram.NewBot(botAPI, mon, rev, loc, logger.Named("telegram"))
	go bot.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: api.NewRouter(mon, rev, alerts, loc, logger.Named("api")),
	}
	go func() {
		logger.Info("admin api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin api failed", zap.Error(err))
		}
	}()

	// First cycle runs before the ticker starts, so a broken setup shows up
	// in the group right away instead of one interval later.
	poll()
	jobs.Start()
	logger.Info("daemon started",
		zap.Duration("poll_interval", cfg.PollInterval()),
		zap.String("daily_revenue_at", cfg.Revenue.DailyAt),
		zap.String("timezone", cfg.Revenue.Timezone))

	<-ctx.Done()
	logger.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutCtx); err != nil {
		logger.Warn("scheduler drain", zap.Error(err))
	}
	return nil
}
