package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/washops/fleetbot/internal/domain"
	"github.com/washops/fleetbot/internal/monitor"
	"github.com/washops/fleetbot/internal/notify"
	"github.com/washops/fleetbot/internal/tms"
)

// Chats routes each notification class to its destination chat.
type Chats struct {
	Group   int64
	Debug   int64
	Revenue int64
}

// Journal is the slice of the alert repository the dispatcher writes to.
type Journal interface {
	Insert(a *domain.Alert) error
}

// Dispatcher delivers cycle output to chats. The problems summary is held
// back while its content hash matches the previous delivery, so an ongoing
// unchanged failure does not spam the chat; every other kind always goes out.
type Dispatcher struct {
	sink       notify.Sink
	journal    Journal // nil disables journaling
	chats      Chats
	debugOnBad bool
	logger     *zap.Logger

	mu               sync.Mutex
	lastProblemsHash string
}

func NewDispatcher(sink notify.Sink, journal Journal, chats Chats, debugOnBad bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sink:       sink,
		journal:    journal,
		chats:      chats,
		debugOnBad: debugOnBad,
		logger:     logger,
	}
}

// DeliverCycle sends one poll cycle's messages to the group chat. A cycle
// without a problems message resets the dedup hash, so the next failure is
// always announced.
func (d *Dispatcher) DeliverCycle(ctx context.Context, res monitor.CycleResult) {
	sawProblems := false
	for _, m := range res.Messages {
		if m.Kind == notify.KindProblems {
			sawProblems = true
			if d.problemsRepeated(m.Text) {
				d.logger.Info("problems summary unchanged; skip sending")
				continue
			}
		}
		d.send(ctx, d.chats.Group, m)
	}

	if !sawProblems {
		d.resetProblemsHash()
	}
	if sawProblems && d.debugOnBad && d.chats.Debug != 0 && res.Raw != nil {
		d.sendDebugDump(ctx, res.Raw)
	}
}

// DeliverRevenue sends a revenue report to the revenue chat.
func (d *Dispatcher) DeliverRevenue(ctx context.Context, text string) {
	d.send(ctx, d.chats.Revenue, notify.Message{Kind: notify.KindRevenue, Text: text})
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, m notify.Message) {
	if chatID == 0 {
		d.logger.Warn("no chat configured", zap.String("kind", string(m.Kind)))
		return
	}
	if err := d.sink.Send(ctx, chatID, m.Text); err != nil {
		d.logger.Warn("send failed",
			zap.String("kind", string(m.Kind)),
			zap.Int64("chat", chatID),
			zap.Error(err))
		return
	}
	d.record(m.Kind, chatID, m.Text)
}

// record journals a delivered message. Only delivered ones: duplicates and
// failed sends never reach the journal.
func (d *Dispatcher) record(kind notify.Kind, chatID int64, text string) {
	if d.journal == nil {
		return
	}
	a := &domain.Alert{
		ID:        uuid.NewString(),
		Kind:      string(kind),
		ChatID:    chatID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.journal.Insert(a); err != nil {
		d.logger.Warn("journal insert failed", zap.Error(err))
	}
}

func (d *Dispatcher) problemsRepeated(text string) bool {
	sum := hashText(text)
	d.mu.Lock()
	defer d.mu.Unlock()
	if sum == d.lastProblemsHash {
		return true
	}
	d.lastProblemsHash = sum
	return false
}

func (d *Dispatcher) resetProblemsHash() {
	d.mu.Lock()
	d.lastProblemsHash = ""
	d.mu.Unlock()
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// sendDebugDump ships the raw snapshot plus redacted request metadata to the
// debug chat as a text document.
func (d *Dispatcher) sendDebugDump(ctx context.Context, p *tms.UnitsPayload) {
	meta := map[string]any{
		"url":              p.URL,
		"status":           p.Status,
		"request_headers":  tms.RedactHeaders(p.ReqHeader),
		"response_headers": tms.RedactHeaders(p.RespHeader),
		"request_body":     json.RawMessage(p.RequestBody),
	}
	head, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		d.logger.Warn("encode debug meta failed", zap.Error(err))
		return
	}

	body := make([]byte, 0, len(head)+2+len(p.Raw))
	body = append(body, head...)
	body = append(body, "\n\n"...)
	body = append(body, p.Raw...)

	err = d.sink.SendDocument(ctx, d.chats.Debug, "🧪 TMS /unit/full (bad detected)", "tms_unit_full.txt", body)
	if err != nil {
		d.logger.Warn("debug dump failed", zap.Error(err))
	}
}
