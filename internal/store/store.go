// Package store keeps the message log fed by the message_logger webhook.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one logged webhook body.
type Entry struct {
	ID       string          `json:"id"`
	ChatKey  string          `json:"chatKey,omitempty"`
	Body     json.RawMessage `json:"body"`
	LoggedAt time.Time       `json:"loggedAt"`
}

// MessageLog is implemented by every backend. Recent returns up to limit
// entries for chatKey, newest first.
type MessageLog interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Recent(ctx context.Context, chatKey string, limit int) ([]Entry, error)
}

// HealthChecker is implemented by backends that depend on an external
// service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// stamp fills in the id and time of a new entry.
func stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}
	if len(e.Body) == 0 {
		e.Body = json.RawMessage("null")
	}
	return e
}

func reversed(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
