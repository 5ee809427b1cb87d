package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/efreitasn/papertrader/internal/config"
	"github.com/efreitasn/papertrader/internal/engine"
	"github.com/efreitasn/papertrader/internal/handler"
	"github.com/efreitasn/papertrader/internal/quote"
	"github.com/efreitasn/papertrader/internal/service"
	"github.com/efreitasn/papertrader/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", slog.String("dir", cfg.DataDir), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := engine.NewMetrics(registry)

	// Stores.
	accounts := store.NewAccountStore(store.NewJSONDocument(filepath.Join(cfg.DataDir, "accounts.json")), logger)

	var sink store.LedgerSink
	switch cfg.LedgerBackend {
	case config.LedgerSQLite:
		sqliteSink, err := store.OpenSQLiteLedger(ctx, filepath.Join(cfg.DataDir, "ledger.db"))
		if err != nil {
			logger.Error("failed to open ledger database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sqliteSink.Close()
		sink = sqliteSink
	default:
		sink = store.NewJSONLedgerSink(store.NewJSONDocument(filepath.Join(cfg.DataDir, "transactions.json")))
	}
	ledger := store.NewLedger(ctx, sink, logger)

	var cache engine.QuoteCache = store.NewMemoryQuoteCache()
	if cfg.RedisAddr != "" {
		redisCache, err := store.NewRedisQuoteCache(store.RedisQuoteCacheConfig{
			Addr: cfg.RedisAddr,
			TTL:  cfg.QuoteCacheTTL,
		})
		if err != nil {
			logger.Error("failed to connect quote cache", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		cache = redisCache
	}

	// Quotes.
	client := quote.NewClient(quote.ClientConfig{
		BaseURL:         cfg.QuoteBaseURL,
		Timeout:         cfg.QuoteTimeout,
		RateLimitPerMin: cfg.QuoteRateLimitPerMin,
		Logger:          logger,
	})
	quotes := engine.NewCachingQuoteSource(client, cache, metrics, logger)

	// Engine.
	book := engine.NewOrderBook(store.NewJSONDocument(filepath.Join(cfg.DataDir, "limit_orders.json")), metrics, logger)
	verifier := engine.NewIntegrityVerifier(cfg.IntegritySweepInterval, accounts, metrics, logger)
	trader := engine.NewTrader(accounts, book, ledger, verifier, metrics, logger)
	evaluator := engine.NewOrderEvaluator(cfg.OrderEvalInterval, cfg.QuoteTimeout, book, accounts, trader, quotes, metrics, logger)

	// Services.
	accountSvc := service.NewAccountService(accounts, ledger, book, trader, service.MissingNamePolicy(cfg.MissingNamePolicy), logger)
	tradeSvc := service.NewTradeService(trader, quotes, cfg.QuoteTimeout, logger)
	quoteSvc := service.NewQuoteService(accounts, quotes, cfg.QuoteTimeout, logger)

	router := handler.NewRouter(accountSvc, tradeSvc, quoteSvc, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)

	// Background loops stop when ctx is cancelled.
	evaluator.Start(ctx)
	verifier.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("data_dir", cfg.DataDir),
			slog.String("ledger_backend", string(cfg.LedgerBackend)),
			slog.Int("accounts", accounts.Len()),
			slog.Int("pending_orders", book.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, then the background loops.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
