package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLog keeps one capped stream per chat.
type RedisLog struct {
	client    *redis.Client
	keyPrefix string
	maxLen    int64
}

func NewRedisLog(client *redis.Client, keyPrefix string, maxLen int64) *RedisLog {
	if keyPrefix == "" {
		keyPrefix = "botkit:log:"
	}
	return &RedisLog{client: client, keyPrefix: keyPrefix, maxLen: maxLen}
}

func (r *RedisLog) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLog) streamKey(chatKey string) string {
	return r.keyPrefix + chatKey
}

func (r *RedisLog) Append(ctx context.Context, e Entry) (Entry, error) {
	e = stamp(e)
	args := &redis.XAddArgs{
		Stream: r.streamKey(e.ChatKey),
		Values: map[string]any{
			"id":       e.ID,
			"body":     []byte(e.Body),
			"loggedAt": e.LoggedAt.Format(time.RFC3339Nano),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return Entry{}, fmt.Errorf("failed to append to stream %s: %w", args.Stream, err)
	}
	return e, nil
}

func (r *RedisLog) Recent(ctx context.Context, chatKey string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	key := r.streamKey(chatKey)
	msgs, err := r.client.XRevRangeN(ctx, key, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", key, err)
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		id, _ := m.Values["id"].(string)
		body, _ := m.Values["body"].(string)
		at, _ := m.Values["loggedAt"].(string)
		loggedAt, err := time.Parse(time.RFC3339Nano, at)
		if err != nil || id == "" || !json.Valid([]byte(body)) {
			continue
		}
		out = append(out, Entry{ID: id, ChatKey: chatKey, Body: json.RawMessage(body), LoggedAt: loggedAt})
	}
	return out, nil
}
