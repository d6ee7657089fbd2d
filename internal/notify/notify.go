package notify

import "context"

type Kind string

const (
	KindProblems    Kind = "problems"
	KindRecovered   Kind = "recovered"
	KindChanged     Kind = "changed"
	KindError       Kind = "error"
	KindConfigError Kind = "config_error"
	KindRevenue     Kind = "revenue"
)

// Message is one notification the core wants delivered somewhere.
type Message struct {
	Kind Kind
	Text string
}

// Sink delivers messages. Fire-and-forget from the core's point of view;
// delivery failures are the sink's concern and are never retried upstream.
type Sink interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, caption, filename string, data []byte) error
}
