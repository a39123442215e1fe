package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ALLOWED_ORIGIN", "LOG_LEVEL", "DEMO_USERNAME", "OAUTH_SCOPES", "MESSAGE_LOG_LIMIT", "OAUTH_CLIENT_ID"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "username", cfg.DemoUsername)
	assert.Equal(t, []string{"openid", "profile"}, cfg.OAuthScopes)
	assert.Equal(t, 200, cfg.MessageLogLimit)
	assert.False(t, cfg.OAuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ROUTES_WATCH", "yes")
	t.Setenv("OAUTH_SCOPES", "email, ,profile")
	t.Setenv("MESSAGE_LOG_LIMIT", "5")
	t.Setenv("OAUTH_CLIENT_ID", "id")
	t.Setenv("OAUTH_AUTH_URL", "https://idp.example.com/authorize")
	t.Setenv("OAUTH_TOKEN_URL", "https://idp.example.com/token")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.RoutesWatch)
	assert.Equal(t, []string{"email", "profile"}, cfg.OAuthScopes)
	assert.Equal(t, 5, cfg.MessageLogLimit)
	assert.True(t, cfg.OAuthEnabled())
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("X_INT", "many")
	t.Setenv("X_NEG", "-4")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_LEVEL", "loud")
	assert.Equal(t, 3, getEnvIntDefault("X_INT", 3))
	assert.Equal(t, 3, getEnvIntDefault("X_NEG", 3))
	assert.True(t, getEnvBoolDefault("X_BOOL", true))
	assert.Equal(t, slog.LevelWarn, getEnvLevelDefault("X_LEVEL", slog.LevelWarn))

	out := buf.String()
	for _, key := range []string{"X_INT", "X_NEG", "X_BOOL", "X_LEVEL"} {
		assert.Contains(t, out, "key="+key)
	}
}

func TestEnvHelpers_UnsetIsSilent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("X_INT", "")
	assert.Equal(t, 7, getEnvIntDefault("X_INT", 7))
	assert.Empty(t, buf.String())
}
