package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsmart/internal/app"
	"shopsmart/internal/config"
	"shopsmart/internal/generator"
	"shopsmart/internal/history"
	"shopsmart/internal/logger"
	"shopsmart/internal/telegram"

	"go.uber.org/zap"
)

const (
	maxSessions       = 1000
	sessionTTL        = 24 * time.Hour
	generationsPerMin = 6
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	// 2. Initialize local state
	backend, err := app.OpenBackend(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to open storage", zap.Error(err))
	}
	defer backend.Close()

	// 3. One controller per chat, all sharing the client and storage
	client := generator.NewClient(cfg, generator.WithLogger(zl))
	sessions := telegram.NewSessions(maxSessions, sessionTTL, generationsPerMin, func(chatID int64) *app.Controller {
		store := history.NewStore(backend.KV, history.WithKey(telegram.HistoryKey(chatID)), history.WithLogger(zl))
		return app.NewController(client, store,
			app.WithRecorder(backend.Recorder()),
			app.WithLogger(zl.With(zap.Int64("chat_id", chatID))),
		)
	})

	opts := []telegram.Option{telegram.WithLogger(zl)}
	if backend.Metrics != nil {
		opts = append(opts, telegram.WithUsage(backend.Metrics))
	}
	bot, err := telegram.NewBot(cfg, sessions, opts...)
	if err != nil {
		zl.Fatal("Failed to initialize Telegram Bot", zap.Error(err))
	}

	// 4. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Telegram Bot Server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight generations reply before the storage closes.
	bot.Wait()
	zl.Info("Server exiting")
}
