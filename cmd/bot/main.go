package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grabbot/grabbot/internal/archive"
	"github.com/grabbot/grabbot/internal/bot"
	"github.com/grabbot/grabbot/internal/config"
	"github.com/grabbot/grabbot/internal/format"
	"github.com/grabbot/grabbot/internal/gate"
	"github.com/grabbot/grabbot/internal/logging"
	"github.com/grabbot/grabbot/internal/metrics"
	"github.com/grabbot/grabbot/internal/orchestrator"
	"github.com/grabbot/grabbot/internal/session"
	"github.com/grabbot/grabbot/internal/tracing"
	"github.com/grabbot/grabbot/internal/ytdlp"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	token, err := loadToken(cfg.Telegram)
	if err != nil {
		logger.Fatalf("Failed to load bot token: %v", err)
	}

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer("grabbot", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	// Start the ops server (metrics + health)
	opsServer := metrics.NewServer(cfg.Ops.Port)
	go func() {
		if err := opsServer.Start(); err != nil {
			logger.ErrorWithErr("Ops server failed", err)
		}
	}()

	// Select the session store backend
	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		store, err := session.NewRedisStore(
			cfg.Session.Host, cfg.Session.Port, cfg.Session.Password, cfg.Session.DB, cfg.Session.TTL)
		if err != nil {
			logger.Fatalf("Failed to connect session store: %v", err)
		}
		defer store.Close()
		sessions = store
	default:
		sessions = session.NewMemoryStore()
	}

	// Optional artifact archival
	var archiver orchestrator.Archiver
	if cfg.Archive.Enabled {
		arc, err := archive.New(cfg.Archive)
		if err != nil {
			logger.Fatalf("Failed to initialize archive: %v", err)
		}
		archiver = arc
	}

	if err := os.MkdirAll(cfg.Download.TempDir, 0755); err != nil {
		logger.Fatalf("Failed to create temp directory: %v", err)
	}

	catalog := format.NewCatalog(cfg.Download.SizeCeiling)
	downloadGate := gate.New(cfg.Download.MaxConcurrent)
	client := ytdlp.New(cfg.Download.YtdlpPath, cfg.Download.SizeCeiling)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The bot is both the inbound event source and the outbound delivery
	// channel, so it is wired to the orchestrator after construction.
	b, err := bot.New(token, cfg.Telegram, cfg.Download, catalog, sessions, client, logger)
	if err != nil {
		logger.Fatalf("Failed to create bot: %v", err)
	}
	orch := orchestrator.New(downloadGate, client, b, archiver, cfg.Download, logger)
	b.SetOrchestrator(orch)

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down gracefully...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Ops server shutdown failed", err)
		}
	}()

	b.Start(ctx)
}

// loadToken reads the bot token from config, a token file, or the
// environment, in that order.
func loadToken(cfg config.TelegramConfig) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return os.Getenv("TELEGRAM_BOT_TOKEN"), nil
}
