package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botkit-webhooks/internal/db"
)

// runLogTests exercises the behavior every backend shares.
func runLogTests(t *testing.T, newLog func(t *testing.T) MessageLog) {
	t.Run("append stamps entries", func(t *testing.T) {
		log := newLog(t)
		chat := "chat-" + uuid.NewString()
		e, err := log.Append(context.Background(), Entry{ChatKey: chat, Body: json.RawMessage(`{"text": "hi"}`)})
		require.NoError(t, err)
		_, err = uuid.Parse(e.ID)
		assert.NoError(t, err)
		assert.False(t, e.LoggedAt.IsZero())
	})

	t.Run("recent is newest first and per chat", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		chat, other := "chat-"+uuid.NewString(), "chat-"+uuid.NewString()
		base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		var ids []string
		for i := 0; i < 3; i++ {
			e, err := log.Append(ctx, Entry{ChatKey: chat, Body: json.RawMessage(`{"n":` + string(rune('0'+i)) + `}`), LoggedAt: base.Add(time.Duration(i) * time.Second)})
			require.NoError(t, err)
			ids = append(ids, e.ID)
		}
		_, err := log.Append(ctx, Entry{ChatKey: other, Body: json.RawMessage(`{}`), LoggedAt: base})
		require.NoError(t, err)

		got, err := log.Recent(ctx, chat, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[2], got[0].ID)
		assert.Equal(t, ids[1], got[1].ID)
		assert.JSONEq(t, `{"n":2}`, string(got[0].Body))
		assert.Equal(t, chat, got[0].ChatKey)
		assert.True(t, got[0].LoggedAt.Equal(base.Add(2*time.Second)))
	})

	t.Run("unknown chat is empty", func(t *testing.T) {
		got, err := newLog(t).Recent(context.Background(), "chat-"+uuid.NewString(), 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryLog(t *testing.T) {
	runLogTests(t, func(t *testing.T) MessageLog { return NewMemoryLog(100) })
}

func TestMemoryLog_Trims(t *testing.T) {
	log := NewMemoryLog(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := log.Append(ctx, Entry{ChatKey: "c", Body: json.RawMessage(`1`)})
		require.NoError(t, err)
	}
	got, err := log.Recent(ctx, "c", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFileLog(t *testing.T) {
	runLogTests(t, func(t *testing.T) MessageLog {
		log, err := NewFileLog(filepath.Join(t.TempDir(), "logs", "messages.jsonl"))
		require.NoError(t, err)
		return log
	})
}

func TestFileLog_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	log, err := NewFileLog(path)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = log.Append(ctx, Entry{ChatKey: "c", Body: json.RawMessage(`"a"`)})
	require.NoError(t, err)

	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = fh.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	got, err := log.Recent(ctx, "c", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `"a"`, string(got[0].Body))
}

func TestDatabaseLog(t *testing.T) {
	url := os.Getenv("TEST_DB_URL")
	if url == "" {
		t.Skip("TEST_DB_URL not set")
	}
	ctx := context.Background()
	database, err := db.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations(ctx, db.Migrations()))

	assert.NoError(t, NewDatabaseLog(database).HealthCheck(ctx))
	runLogTests(t, func(t *testing.T) MessageLog { return NewDatabaseLog(database) })
}

func TestRedisLog(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	assert.NoError(t, NewRedisLog(client, "", 50).HealthCheck(context.Background()))
	runLogTests(t, func(t *testing.T) MessageLog { return NewRedisLog(client, "test:botkit:log:", 50) })
}

func TestRedisLog_HealthCheckUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	var log MessageLog = NewRedisLog(client, "", 10)
	hc, ok := log.(HealthChecker)
	require.True(t, ok)
	assert.Error(t, hc.HealthCheck(context.Background()))

	_, ok = MessageLog(NewMemoryLog(1)).(HealthChecker)
	assert.False(t, ok)
}
