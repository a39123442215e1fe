package store

import (
	"context"
	"fmt"

	"botkit-webhooks/internal/db"
)

// DatabaseLog stores entries in the message_log table.
type DatabaseLog struct {
	db *db.DB
}

func NewDatabaseLog(database *db.DB) *DatabaseLog {
	return &DatabaseLog{db: database}
}

func (ds *DatabaseLog) HealthCheck(ctx context.Context) error {
	return ds.db.HealthCheck(ctx)
}

func (ds *DatabaseLog) Append(ctx context.Context, e Entry) (Entry, error) {
	e = stamp(e)
	query := `
		INSERT INTO message_log (id, chat_key, body, logged_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := ds.db.ExecContext(ctx, query, e.ID, e.ChatKey, string(e.Body), e.LoggedAt); err != nil {
		return Entry{}, fmt.Errorf("failed to save message: %w", err)
	}
	return e, nil
}

func (ds *DatabaseLog) Recent(ctx context.Context, chatKey string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, chat_key, body, logged_at
		FROM message_log
		WHERE chat_key = $1
		ORDER BY logged_at DESC
		LIMIT $2
	`
	rows, err := ds.db.QueryContext(ctx, query, chatKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var body []byte
		if err := rows.Scan(&e.ID, &e.ChatKey, &body, &e.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		e.Body = body
		e.LoggedAt = e.LoggedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return out, nil
}
