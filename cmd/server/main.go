// Package main is the entry point for the modelgate server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/gateway"
	"github.com/modelgate/modelgate/internal/handler"
	"github.com/modelgate/modelgate/internal/security"
	"github.com/modelgate/modelgate/internal/ui"
)

const version = "v1.0.0"

func main() {
	// =========================================================================
	// 1. Load configuration (Singleton)
	// =========================================================================
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger with credential redaction
	// =========================================================================
	logger := setupLogger(cfg.Logging)

	logger.Info("starting modelgate",
		slog.String("version", version),
		slog.Int("providers", len(cfg.Providers)),
		slog.Int("total_keys", cfg.TotalKeyCount()),
	)

	// =========================================================================
	// 3. Build the provider registry
	// =========================================================================
	registry := gateway.NewRegistry(cfg.Providers, logger)

	// =========================================================================
	// 4. Setup Gin router with middleware
	// =========================================================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.Use(handler.StripAuthHeadersMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	gatewayHandler := handler.NewGatewayHandler(registry, handler.WithLogger(logger))

	router.POST("/v1/chat/completions", gatewayHandler.HandleChatCompletion)
	router.GET("/v1/usage/:provider", gatewayHandler.HandleUsage)
	router.GET("/v1/providers", gatewayHandler.HandleProviders)
	router.GET("/health", gatewayHandler.HandleHealth)

	// Also support without /v1 prefix for compatibility
	router.POST("/chat/completions", gatewayHandler.HandleChatCompletion)

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// =========================================================================
	// 5. Start HTTP server with graceful shutdown
	// =========================================================================
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))

		ui.PrintBanner(version)
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, registry.Providers())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// =========================================================================
	// 6. Graceful shutdown on SIGTERM/SIGINT
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// setupLogger creates a structured logger per the logging config. Every
// record passes through the redactor so credentials never reach the output,
// whatever a call site logs.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var base slog.Handler
	if cfg.Format == "text" {
		base = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		base = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(security.NewRedactedHandler(base))
	slog.SetDefault(logger)
	return logger
}
