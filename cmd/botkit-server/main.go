package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"botkit-webhooks/internal/assistant"
	"botkit-webhooks/internal/catalog"
	"botkit-webhooks/internal/config"
	"botkit-webhooks/internal/db"
	"botkit-webhooks/internal/logctx"
	"botkit-webhooks/internal/server"
	"botkit-webhooks/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logctx.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	routes, err := catalog.Load(cfg.RoutesFile, cfg.WebLoginURL)
	if err != nil {
		return fmt.Errorf("failed to load routes: %w", err)
	}
	catalogStore := catalog.NewStore(routes, cfg.RoutesFile, cfg.WebLoginURL)
	if cfg.RoutesWatch && cfg.RoutesFile != "" {
		if err := catalogStore.Watch(ctx); err != nil {
			return err
		}
	}

	messages, closeLog, err := openMessageLog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	var replier assistant.Replier
	if cfg.OpenAIAPIKey != "" {
		persona, err := assistant.LoadPersona(cfg.PersonaFile)
		if err != nil {
			return err
		}
		oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
		replier = assistant.NewOpenAIReplier(persona, openai.NewClientWithConfig(oc), cfg.Model)
	}

	s, err := server.NewServer(cfg, server.Deps{
		Catalog:  catalogStore,
		Messages: messages,
		Replier:  replier,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("BotKit webhook server listening", slog.String("addr", srv.Addr), slog.Any("routes", routes.Names()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openMessageLog picks the first configured backend: Postgres, Redis, a
// JSON-lines file, then memory.
func openMessageLog(ctx context.Context, cfg config.Config) (store.MessageLog, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.RunMigrations(ctx, db.Migrations()); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("message log: postgres")
		return store.NewDatabaseLog(database), func() { database.Close() }, nil
	case cfg.RedisURL != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		slog.Info("message log: redis")
		return store.NewRedisLog(client, "", int64(cfg.MessageLogLimit)), func() { client.Close() }, nil
	case cfg.MessageLogFile != "":
		fl, err := store.NewFileLog(cfg.MessageLogFile)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("message log: file", slog.String("path", cfg.MessageLogFile))
		return fl, func() {}, nil
	default:
		slog.Info("message log: memory", slog.Int("limit", cfg.MessageLogLimit))
		return store.NewMemoryLog(cfg.MessageLogLimit), func() {}, nil
	}
}
