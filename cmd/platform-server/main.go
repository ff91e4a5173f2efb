package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/ai"
	"github.com/bantconfirm/whatsapp-platform/internal/api"
	"github.com/bantconfirm/whatsapp-platform/internal/auth"
	"github.com/bantconfirm/whatsapp-platform/internal/cache"
	"github.com/bantconfirm/whatsapp-platform/internal/chat"
	"github.com/bantconfirm/whatsapp-platform/internal/config"
	"github.com/bantconfirm/whatsapp-platform/internal/events"
	"github.com/bantconfirm/whatsapp-platform/internal/meta"
	"github.com/bantconfirm/whatsapp-platform/internal/metrics"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/platform-server.yml", "Configuration file path")
	flag.Parse()

	// Local overrides from .env, ignored when absent
	_ = godotenv.Load()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database
	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	if err := store.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	m := metrics.Registry("whatsapp_platform")

	// Core services
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	authService := auth.NewService(store, jwtManager)

	var completer ai.ChatCompleter
	if cfg.AI.APIKey != "" {
		completer = ai.NewClient(&cfg.AI, m)
	} else {
		log.Info().Msg("AI not configured, conversations run without assisted replies")
	}
	chatService := chat.NewService(store, completer, cfg.AI.Timeout)

	metaClient := meta.NewClient(&cfg.Meta, m)

	opts := api.Options{}

	// Optional: Redis cache
	if cfg.Redis.Addr != "" {
		redisCache := cache.New(&cfg.Redis)
		if err := redisCache.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, continuing without cache")
		} else {
			defer redisCache.Close()
			log.Info().Msg("Connected to Redis")
			opts.Redis = redisCache
		}
	}

	// Optional: NATS event publisher
	if cfg.NATS.URL != "" {
		publisher, err := events.Connect(&cfg.NATS)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without events")
		} else {
			defer publisher.Close()
			log.Info().Msg("Connected to NATS")
			opts.Events = publisher
		}
	}

	// Start REST API server
	apiServer := api.NewRESTServer(cfg, store, authService, chatService, metaClient, m, opts)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := apiServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Shutdown API server
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	log.Info().Msg("Platform server stopped")
}
