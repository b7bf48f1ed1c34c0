package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"

	"github.com/agentalpha/signal-exchange/internal/api"
	"github.com/agentalpha/signal-exchange/internal/chain"
	"github.com/agentalpha/signal-exchange/internal/config"
	"github.com/agentalpha/signal-exchange/internal/database"
	"github.com/agentalpha/signal-exchange/internal/kafka"
	"github.com/agentalpha/signal-exchange/internal/logging"
	"github.com/agentalpha/signal-exchange/internal/metrics"
	"github.com/agentalpha/signal-exchange/internal/payment"
	"github.com/agentalpha/signal-exchange/internal/redis"
	"github.com/agentalpha/signal-exchange/internal/reputation"
	"github.com/agentalpha/signal-exchange/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := runMigrations(cfg.Database.ConnectionString(), log); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}
	log.Info().Msg("connected to PostgreSQL database")

	// Connect to Redis. The server runs degraded without it.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Msg("connected to Redis cache")
	}

	// Solana client with the local signing identity.
	wallet, err := chain.LoadWalletFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load wallet key")
	}
	chainClient := chain.NewClient(cfg.Solana.RPCURL, wallet, cfg.Solana.Commitment, log)
	log.Info().Str("authority", chainClient.Authority().String()).Str("rpc", cfg.Solana.RPCURL).Msg("solana client ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider directory kept fresh by a background sync loop.
	directory := chain.NewProviderDirectory()
	syncer := chain.NewSyncer(chainClient, directory, cfg.Sync.Interval, log)
	go syncer.Run(ctx)

	// Kafka: lifecycle events out, oracle outcomes in.
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.LifecycleTopic, log)
	defer producer.Close()

	outcomesConsumer := kafka.NewOutcomesConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.OutcomesTopic,
		cfg.Kafka.ConsumerGroup,
		db,
		log,
	)
	go func() {
		if err := outcomesConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outcomes consumer stopped with error")
		}
	}()

	// Payment gate over the same RPC connection.
	recipient := cfg.Payment.Recipient
	if recipient == "" {
		recipient = chainClient.Authority().String()
	}
	verifier := payment.NewVerifier(
		payment.NewSolanaFetcher(chainClient.RPC()),
		recipient,
		cfg.Payment.Network,
		cfg.Payment.MaxAge,
		cfg.Payment.ReplayLimit,
		log,
	)

	tracker := reputation.NewTracker(db, log)
	signals := store.NewSignalStore()

	handler := api.NewHandler(
		signals,
		directory,
		chainClient,
		db,
		tracker,
		producer,
		redisClient,
		db,
		cfg.Payment.DefaultPriceLamports,
		log,
	)
	router := api.SetupRoutes(handler, verifier)

	metricsSrv := metrics.Serve(cfg.Server.MetricsAddr)
	log.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics listener started")

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	if err := outcomesConsumer.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing outcomes consumer")
	}

	log.Info().Msg("server stopped")
}

func runMigrations(databaseURL string, log zerolog.Logger) error {
	m, err := migrate.New("file://./db/migrations", databaseURL)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no migrations to apply, database is up to date")
			return nil
		}
		return err
	}
	return nil
}
