// Command riobridge is the main entry point for the Rio voice bridge server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yexis-labs/riobridge/internal/config"
	"github.com/yexis-labs/riobridge/internal/crm"
	"github.com/yexis-labs/riobridge/internal/health"
	"github.com/yexis-labs/riobridge/internal/inventory"
	"github.com/yexis-labs/riobridge/internal/knowledge"
	"github.com/yexis-labs/riobridge/internal/observe"
	"github.com/yexis-labs/riobridge/internal/server"
	"github.com/yexis-labs/riobridge/internal/telephony"
	"github.com/yexis-labs/riobridge/internal/tools"
	"github.com/yexis-labs/riobridge/pkg/live/gemini"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "riobridge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "riobridge: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("riobridge starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "riobridge",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Lead store ────────────────────────────────────────────────────────────
	var (
		leads    crm.Store
		checkers []health.Checker
	)
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()

		store := crm.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("lead store migration failed", "err", err)
			return 1
		}
		leads = store
		checkers = append(checkers, health.Checker{Name: "database", Check: pool.Ping})
		slog.Info("lead store ready", "backend", "postgres")
	} else {
		leads = crm.NewSeededMemStore()
		slog.Warn("no postgres dsn configured — using in-memory lead store")
	}

	// ── Knowledge base ────────────────────────────────────────────────────────
	var searcher knowledge.Searcher
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		embedder, err := knowledge.NewGeminiEmbedder(ctx, cfg.Gemini.APIKey, cfg.Knowledge.EmbeddingModel)
		if err != nil {
			slog.Error("failed to create embedder", "err", err)
			return 1
		}
		kb, err := knowledge.NewPostgresStore(ctx, dsn, embedder, cfg.Knowledge.EmbeddingDimensions)
		if err != nil {
			slog.Error("failed to open knowledge base", "err", err)
			return 1
		}
		defer kb.Close()
		searcher = kb
		checkers = append(checkers, health.Checker{Name: "knowledge", Check: kb.Ping})
		slog.Info("knowledge base ready", "backend", "pgvector")
	} else {
		searcher = knowledge.NewSeededMemSearcher()
		slog.Warn("no postgres dsn configured — using in-memory keyword search")
	}

	// ── Tools ─────────────────────────────────────────────────────────────────
	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, inventory.DefaultCatalog(), searcher, leads, time.Now); err != nil {
		slog.Error("failed to register tools", "err", err)
		return 1
	}

	// ── Session provider ──────────────────────────────────────────────────────
	var providerOpts []gemini.Option
	if cfg.Gemini.Model != "" {
		providerOpts = append(providerOpts, gemini.WithModel(cfg.Gemini.Model))
	}
	provider := gemini.New(cfg.Gemini.APIKey, providerOpts...)

	// ── Telephony (optional) ──────────────────────────────────────────────────
	var phone server.Dialer
	if cfg.Twilio.Configured() {
		client, err := telephony.New(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		if err != nil {
			slog.Error("failed to create twilio client", "err", err)
			return 1
		}
		phone = client
		slog.Info("telephony configured", "from", cfg.Twilio.FromNumber)
	} else {
		slog.Warn("telephony not configured — /make-call and /send-sms are disabled")
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv, err := server.New(server.Config{
		Domain:       cfg.Server.Domain,
		Provider:     provider,
		Tools:        registry,
		Leads:        leads,
		Phone:        phone,
		Instructions: cfg.Agent.Instructions,
		Voice:        cfg.Gemini.Voice,
		Greeting:     cfg.Agent.Greeting,
		DrainWindow:  cfg.Relay.DrainWindow,
		Checkers:     checkers,
		Log:          logger,
	})
	if err != nil {
		slog.Error("failed to initialise server", "err", err)
		return 1
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		slog.Error("http server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
