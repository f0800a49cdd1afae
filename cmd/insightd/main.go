// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command insightd starts the RavenStack Insight API server.
//
// Insight answers natural-language questions over subscription data:
//   - Analytics questions resolved to intents and rendered as views
//   - NL-to-SQL questions synthesized into warehouse queries and executed
//   - A rule-based assistant for everything conversational
//
// Usage:
//
//	go run ./cmd/insightd
//	go run ./cmd/insightd -addr :9090 -warehouse /tmp/insight.db
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8086/v1/insight/health
//
//	# Ask an analytics question
//	curl -X POST http://localhost:8086/v1/insight/ask \
//	  -H "Content-Type: application/json" \
//	  -d '{"question": "Show me high-risk customers"}'
//
//	# Run a data query
//	curl -X POST http://localhost:8086/v1/insight/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"question": "Show me customers spending more than $500"}'
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/ravenstack/insight/services/insight"
	"github.com/ravenstack/insight/services/insight/config"
	"github.com/ravenstack/insight/services/insight/nlq"
	badgerstore "github.com/ravenstack/insight/services/insight/storage/badger"
	"github.com/ravenstack/insight/services/insight/warehouse"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Flags override environment for local runs.
	addr := flag.String("addr", cfg.ListenAddr, "HTTP listen address")
	warehousePath := flag.String("warehouse", cfg.WarehousePath, "SQLite database path")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()
	cfg.ListenAddr = *addr
	cfg.WarehousePath = *warehousePath

	logger := newLogger(cfg.LogLevel, *debug)
	slog.SetDefault(logger)

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	shutdownTelemetry, err := setupTelemetry(cfg.TraceStdout)
	if err != nil {
		logger.Error("Telemetry setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Warehouse: open, bootstrap, seed if empty.
	wh, err := warehouse.OpenSQLite(cfg.WarehousePath, cfg.WarehouseTable, logger)
	if err != nil {
		logger.Error("Warehouse unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ctx := context.Background()
	if err := wh.Bootstrap(ctx); err != nil {
		logger.Error("Warehouse bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if n, err := wh.Count(ctx); err == nil && n == 0 && cfg.SeedRows > 0 {
		if err := wh.Seed(ctx, cfg.SeedRows); err != nil {
			logger.Warn("Warehouse seed failed, continuing empty", slog.String("error", err.Error()))
		}
	}

	// Vector-space cache: graceful degradation when the directory is
	// unavailable; spaces rebuild in-memory on every start.
	var store nlq.SpaceStore
	var cacheDB *badgerstore.DB
	if cfg.CacheDir != "" {
		db, err := badgerstore.Open(cfg.CacheDir, logger)
		if err != nil {
			logger.Warn("Vector cache BadgerDB unavailable, persistence disabled",
				slog.String("dir", cfg.CacheDir),
				slog.String("error", err.Error()),
			)
		} else {
			cacheDB = db
			store = nlq.NewBadgerSpaceStore(db, 0, logger)
			logger.Info("Vector cache BadgerDB opened", slog.String("dir", cfg.CacheDir))
		}
	}

	service, err := insight.New(ctx, cfg, wh, store, logger)
	if err != nil {
		logger.Error("Service assembly failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	handlers := insight.NewHandlers(service, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("ravenstack-insight"))
	router.Use(rateLimitMiddleware(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	insight.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting RavenStack Insight server", slog.String("address", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down Insight server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server shutdown error", slog.String("error", err.Error()))
	}
	if cacheDB != nil {
		if err := cacheDB.Close(); err != nil {
			logger.Warn("Failed to close vector cache BadgerDB", slog.String("error", err.Error()))
		}
	}
	if err := wh.Close(); err != nil {
		logger.Warn("Failed to close warehouse", slog.String("error", err.Error()))
	}
	shutdownTelemetry(shutdownCtx)
}

// newLogger builds the process logger. Debug mode forces debug level and
// text output for readability.
func newLogger(level string, debug bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// setupTelemetry wires the OTel meter provider to the Prometheus exporter
// and, when enabled, a stdout span exporter for local debugging. Returns a
// shutdown function flushing both providers.
func setupTelemetry(traceStdout bool) (func(context.Context), error) {
	promExporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	otel.SetMeterProvider(meterProvider)

	var tracerProvider *sdktrace.TracerProvider
	if traceStdout {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	} else {
		tracerProvider = sdktrace.NewTracerProvider()
	}
	otel.SetTracerProvider(tracerProvider)

	return func(ctx context.Context) {
		_ = tracerProvider.Shutdown(ctx)
		_ = meterProvider.Shutdown(ctx)
	}, nil
}

// rateLimitMiddleware applies a process-wide token bucket to all requests.
func rateLimitMiddleware(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
