package domain

import "time"

// Alert is one delivered notification, journaled for auditing.
type Alert struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
