package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/auth"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/config"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/database"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/logger"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/portfolio"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/quotes"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/server"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.",
		zap.String("driver", cfg.Database.Driver))

	// Sessions and quote caching run on Redis when configured, in-process
	// otherwise.
	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	var priceCache quotes.Cache = quotes.NoopCache{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		sessions = auth.NewRedisSessionStore(rdb)
		priceCache = quotes.NewRedisCache(rdb, time.Duration(cfg.Quotes.CacheTTLSec)*time.Second)
		log.Info("Redis connection successful.")
	} else {
		log.Warn("Redis not configured, using in-memory sessions and no quote cache")
	}

	quoteClient := quotes.NewClient(&cfg.Quotes, priceCache, log)

	authSvc := auth.NewService(db, sessions, log, &cfg.Auth)
	portfolioSvc := portfolio.NewService(db, quoteClient, log)

	handler := server.NewHandler(authSvc, portfolioSvc, log)
	router := server.NewRouter(handler, authSvc)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	go func() {
		log.Info("Starting web server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
