package telegram

import (
	"context"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageRunes stays under Telegram's 4096-character message cap with
// room for the truncation marker.
const maxMessageRunes = 4000

const truncationMarker = "\n… (truncated)"

// sender is the slice of the bot API the sink needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sink delivers notifications through the Telegram bot API.
type Sink struct {
	api    sender
	logger *zap.Logger
}

func NewSink(api *tgbotapi.BotAPI, logger *zap.Logger) *Sink {
	return newSink(api, logger)
}

func newSink(api sender, logger *zap.Logger) *Sink {
	return &Sink{api: api, logger: logger}
}

// Send delivers plain text. Remote feed text may contain anything, so no
// parse mode is set; overlong messages are truncated with a marker.
func (s *Sink) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, Truncate(text))
	msg.DisableWebPagePreview = true

	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// SendDocument delivers data as a named file with a caption.
func (s *Sink) SendDocument(ctx context.Context, chatID int64, caption, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = Truncate(caption)

	if _, err := s.api.Send(doc); err != nil {
		return fmt.Errorf("telegram send document to %d: %w", chatID, err)
	}
	return nil
}

// Truncate cuts text to the Telegram message limit, marking the cut.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return text
	}
	runes := []rune(text)
	keep := maxMessageRunes - utf8.RuneCountInString(truncationMarker)
	return string(runes[:keep]) + truncationMarker
}
