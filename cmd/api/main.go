package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/servicehub/internal/config"
	"github.com/joshua-takyi/servicehub/internal/connect"
	"github.com/joshua-takyi/servicehub/internal/container"
	"github.com/joshua-takyi/servicehub/internal/events"
	"github.com/joshua-takyi/servicehub/internal/helpers"
	"github.com/joshua-takyi/servicehub/internal/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting ServiceHub API server", "environment", cfg.Environment)

	// Initialize database connections
	supaClient, err := connect.InitSupabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Supabase successfully")

	mongoClient, err := connect.MongoDBConnect(cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully")

	validator, err := helpers.NewTokenValidator(cfg.SupabaseURL)
	if err != nil {
		logger.Error("Failed to load Supabase signing keys", "error", err)
		os.Exit(1)
	}

	clients := container.Clients{
		Supabase:  supaClient,
		MongoDB:   mongoClient,
		Validator: validator,
	}

	// Optional infrastructure. Each one degrades a feature rather than stopping the server.
	if cfg.RedisURL != "" {
		if clients.Redis, err = connect.RedisConnect(cfg); err != nil {
			logger.Warn("Redis unavailable, realtime events stay on this instance", "error", err)
		} else {
			logger.Info("Connected to Redis successfully")
		}
	}
	if cfg.RabbitMQURL != "" {
		if clients.Publisher, err = events.NewPublisher(cfg.RabbitMQURL, events.DefaultExchange, logger); err != nil {
			logger.Warn("RabbitMQ unavailable, lifecycle events will not be streamed", "error", err)
		}
	}
	if cfg.CloudinaryEnabled() {
		if clients.Cloudinary, err = connect.CloudinaryCredentials(cfg); err != nil {
			logger.Warn("Cloudinary unavailable, service photo uploads disabled", "error", err)
		} else {
			logger.Info("Cloudinary configured successfully")
		}
	}

	// Initialize dependency container
	appContainer := container.NewContainer(cfg, logger, clients)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexCtx, cancelIndexes := context.WithTimeout(ctx, 30*time.Second)
	if err := appContainer.MongoRepo.EnsureIndexes(indexCtx); err != nil {
		logger.Error("Failed to ensure MongoDB indexes", "error", err)
	}
	cancelIndexes()

	if appContainer.RedisBridge != nil {
		go func() {
			if err := appContainer.RedisBridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis bridge stopped", "error", err)
			}
		}()
	}
	go appContainer.BookingLimiter.Cleanup(ctx)

	// Setup routes
	router := routes.SetupRoutes(appContainer)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Close connections
	if clients.Publisher != nil {
		if err := clients.Publisher.Close(); err != nil {
			logger.Error("Error closing RabbitMQ publisher", "error", err)
		}
	}
	validator.Close()
	if err := connect.RedisDisconnect(); err != nil {
		logger.Error("Error disconnecting from Redis", "error", err)
	}
	connect.Disconnect()
	if err := connect.MongoDBDisconnect(); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	level := cfg.SlogLevel()

	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}
