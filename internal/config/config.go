package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      slog.Level
	// PublicURL is where the platform reaches this service; URL hooks
	// point under it.
	PublicURL string
	// Route catalog
	RoutesFile  string
	RoutesWatch bool
	// Login page advertised in LoginOAuthEvent
	WebLoginURL  string
	DemoUsername string
	DemoPassword string
	// Optional upstream OAuth provider behind the login page
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthRedirectURL  string
	OAuthScopes       []string
	// StateSecret signs the OAuth state parameter
	StateSecret string
	// Assistant
	OpenAIAPIKey  string
	Model         string
	OpenAIBaseURL string
	PersonaFile   string
	// Message log; the first configured backend wins: DB_URL, REDIS_URL,
	// MESSAGE_LOG_FILE, then memory.
	DatabaseURL     string
	RedisURL        string
	MessageLogFile  string
	MessageLogLimit int
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:              getEnvDefault("PORT", "8080"),
		AllowedOrigin:     getEnvDefault("ALLOWED_ORIGIN", "*"),
		LogLevel:          getEnvLevelDefault("LOG_LEVEL", slog.LevelInfo),
		PublicURL:         getEnvDefault("PUBLIC_URL", "http://localhost:8080"),
		RoutesFile:        os.Getenv("ROUTES_FILE"),
		RoutesWatch:       getEnvBoolDefault("ROUTES_WATCH", false),
		WebLoginURL:       os.Getenv("WEB_LOGIN_URL"),
		DemoUsername:      getEnvDefault("DEMO_USERNAME", "username"),
		DemoPassword:      getEnvDefault("DEMO_PASSWORD", "password"),
		OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		OAuthAuthURL:      os.Getenv("OAUTH_AUTH_URL"),
		OAuthTokenURL:     os.Getenv("OAUTH_TOKEN_URL"),
		OAuthRedirectURL:  getEnvDefault("OAUTH_REDIRECT_URL", "http://localhost:8080/dl/callback"),
		OAuthScopes:       getEnvListDefault("OAUTH_SCOPES", []string{"openid", "profile"}),
		StateSecret:       os.Getenv("STATE_SECRET"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		Model:             getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		PersonaFile:       os.Getenv("PERSONA_FILE"),
		DatabaseURL:       os.Getenv("DB_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		MessageLogFile:    os.Getenv("MESSAGE_LOG_FILE"),
		MessageLogLimit:   getEnvIntDefault("MESSAGE_LOG_LIMIT", 200),
	}
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set; the bot branch uses canned replies")
	}
	if cfg.OAuthEnabled() && cfg.StateSecret == "" {
		slog.Warn("STATE_SECRET is not set; OAuth state is signed with a per-process key")
	}
	return cfg
}

// OAuthEnabled reports whether an upstream provider is configured.
func (c Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthAuthURL != "" && c.OAuthTokenURL != ""
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	warnInvalid(key, v, def)
	return def
}

// getEnvIntDefault accepts positive integers only; every count configured
// here is a size or a limit.
func getEnvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	warnInvalid(key, v, def)
	return def
}

func getEnvLevelDefault(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err == nil {
		return lvl
	}
	warnInvalid(key, v, def)
	return def
}

func warnInvalid(key, value string, def any) {
	slog.Warn("[config] ignoring invalid value", slog.String("key", key), slog.String("value", value), slog.Any("default", def))
}
