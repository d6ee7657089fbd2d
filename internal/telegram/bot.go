package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// StatusProvider renders the current fleet summary on demand.
type StatusProvider interface {
	Summary(ctx context.Context) (string, error)
}

// RevenueProvider renders a revenue report for a date range on demand.
type RevenueProvider interface {
	ReportText(ctx context.Context, from, to time.Time) (string, error)
}

// updateSource is the slice of the bot API the command loop needs.
type updateSource interface {
	sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot answers chat commands. Scheduled notifications go through Sink; this
// loop only serves manual triggers.
type Bot struct {
	api     updateSource
	status  StatusProvider
	revenue RevenueProvider
	loc     *time.Location
	logger  *zap.Logger
}

func NewBot(api *tgbotapi.BotAPI, status StatusProvider, revenue RevenueProvider, loc *time.Location, logger *zap.Logger) *Bot {
	return newBot(api, status, revenue, loc, logger)
}

func newBot(api updateSource, status StatusProvider, revenue RevenueProvider, loc *time.Location, logger *zap.Logger) *Bot {
	return &Bot{api: api, status: status, revenue: revenue, loc: loc, logger: logger}
}

// Run long-polls for commands until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("command loop started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("command loop stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				b.logger.Info("updates channel closed")
				return
			}
			b.handle(ctx, upd)
		}
	}
}

func (b *Bot) handle(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	chatID := msg.Chat.ID
	cmd := msg.Command()
	b.logger.Info("command received", zap.String("command", cmd), zap.Int64("chat", chatID))

	switch cmd {
	case "start":
		b.reply(chatID,
			"Fleet monitor is running.\n"+
				"/status — fleet summary now.\n"+
				"/revenue [YYYY-MM-DD [YYYY-MM-DD]] — revenue report.\n"+
				"/whereami — chat and user ids.")

	case "status":
		text, err := b.status.Summary(ctx)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("⚠️ Status request failed: %v", err))
			return
		}
		b.reply(chatID, text)

	case "revenue":
		from, to, err := parseRange(msg.CommandArguments(), time.Now().In(b.loc))
		if err != nil {
			b.reply(chatID, "Usage: /revenue [YYYY-MM-DD [YYYY-MM-DD]]")
			return
		}
		text, err := b.revenue.ReportText(ctx, from, to)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("⚠️ Revenue request failed: %v", err))
			return
		}
		b.reply(chatID, text)

	case "whereami":
		userID := "n/a"
		if msg.From != nil {
			userID = fmt.Sprintf("%d", msg.From.ID)
		}
		b.reply(chatID, fmt.Sprintf("chat_id: %d\nchat_type: %s\nuser_id: %s", chatID, msg.Chat.Type, userID))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, Truncate(text))
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("reply failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// parseRange reads zero, one or two dates. No dates means today; one date is
// that single day; two dates bound the range inclusively.
func parseRange(args string, now time.Time) (time.Time, time.Time, error) {
	fields := strings.Fields(args)
	loc := now.Location()

	switch len(fields) {
	case 0:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		return day, day, nil
	case 1:
		day, err := time.ParseInLocation(dateLayout, fields[0], loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", fields[0], err)
		}
		return day, day, nil
	case 2:
		from, err := time.ParseInLocation(dateLayout, fields[0], loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", fields[0], err)
		}
		to, err := time.ParseInLocation(dateLayout, fields[1], loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", fields[1], err)
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("range end %s before start %s", fields[1], fields[0])
		}
		return from, to, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("want at most two dates, got %d", len(fields))
	}
}
