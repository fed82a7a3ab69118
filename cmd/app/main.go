// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-continuity/internal/config"
	"chat-continuity/internal/domain/ports/adapter"
	"chat-continuity/internal/domain/ports/repository"
	aiAdapters "chat-continuity/internal/infra/adapters/ai"
	"chat-continuity/internal/infra/api"
	pg "chat-continuity/internal/infra/db/postgres"
	"chat-continuity/internal/infra/logging"
	"chat-continuity/internal/infra/metrics"
	red "chat-continuity/internal/infra/redis"
	"chat-continuity/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop generator, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// ---- Redis (optional: cache + turn lock) ----
	var sessionCache *red.SessionCache
	var locker repository.Locker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		sessionCache = red.NewSessionCache(redisClient, cfg.Redis.TTL)
		if cfg.History.SerializeTurns {
			locker = red.NewLocker(redisClient)
			logger.Info().Msg("per-user turn serialization enabled")
		}
	} else if cfg.History.SerializeTurns {
		log.Fatalf("history.serialize_turns requires redis.url")
	}

	// ---- Repositories ----
	sessionRepo := pg.NewSessionRepo(pool, sessionCache)

	// ---- Generator adapter (Gemini -> OpenAI -> noop in dev) ----
	var generator adapter.ReplyGenerator
	switch {
	case cfg.AI.GeminiKey != "":
		generator, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("generator: gemini")
	case cfg.AI.OpenAIKey != "":
		generator, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("generator: openai")
	case cfg.Runtime.Dev:
		generator = aiAdapters.NewNoopAIAdapter()
		logger.Info().Msg("generator: noop")
	default:
		log.Fatalf("no generator configured: set ai.gemini_key or ai.openai_key in %s (or run with -dev)", *cfgPath)
	}

	// ---- Use cases ----
	historyUC := usecase.NewHistoryUseCase(sessionRepo, locker, cfg.History.LockTTL, logger)
	chatUC := usecase.NewChatUseCase(historyUC, generator, cfg.AI.DefaultModel, cfg.History.ContextWindow, logger)

	// ---- HTTP ----
	var auth *api.AuthManager
	if cfg.Server.AuthSecret != "" {
		auth = api.NewAuthManager(cfg.Server.AuthSecret, 30*time.Minute)
	}
	server := api.NewServer(chatUC, historyUC, auth, cfg.History.RecentWindow, logger)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Routes(),
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	// ---- Graceful shutdown ----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
