package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Davidng2000/Gai-proxy/internal/ask"
	"github.com/Davidng2000/Gai-proxy/internal/config"
	"github.com/Davidng2000/Gai-proxy/internal/httpserver"
	"github.com/Davidng2000/Gai-proxy/internal/llm"
	"github.com/Davidng2000/Gai-proxy/internal/session"
	"github.com/Davidng2000/Gai-proxy/internal/transport"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	httpClient := transport.NewHTTPClient(cfg.RequestTimeout)
	llmClient := llm.NewGeminiClient(cfg.Gemini, httpClient, logger)

	memStore := session.NewMemoryStore(cfg.Session.TTL, cfg.Session.SweepInterval)
	defer memStore.Close()

	// Redis подключается только если задан URL и бэкенд отвечает на старте;
	// иначе процесс живёт на одном in-memory хранилище.
	var store session.Store = memStore
	if cfg.Session.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			logger.Warn("redis store disabled", slog.String("error", err.Error()))
		} else {
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := redisStore.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warn("redis unreachable, using memory store", slog.String("error", err.Error()))
				redisStore.Close()
			} else {
				store = session.NewFallback(redisStore, memStore, logger)
				defer redisStore.Close()
				logger.Info("redis session store enabled")
			}
		}
	}

	askHandler := ask.NewHandler(ask.Deps{
		LLM:          llmClient,
		Sessions:     store,
		Logger:       logger,
		DefaultModel: cfg.Gemini.DefaultModel,
		CodeLength:   cfg.Session.CodeLength,
		ReplyLimit:   cfg.ReplyLimit,
		DebugErrors:  cfg.DebugErrors,
	})

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:     logger,
		AskHandler: askHandler,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
