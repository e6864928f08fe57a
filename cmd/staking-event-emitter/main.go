package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/config"
	"github.com/feral-file/staking-indexer/internal/emitter"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/providers/ethereum"
	"github.com/feral-file/staking-indexer/internal/providers/jetstream"
	"github.com/feral-file/staking-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadEmitterConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		Environment:     cfg.Environment,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "staking-event-emitter",
		Tags: map[string]string{
			"service": "staking-event-emitter",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Staking Event Emitter", zap.String("chain", string(cfg.Ethereum.ChainID)))

	// Connect to database. The emitter only owns the cursor table but migrates everything
	// so either binary can start first.
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN(), gormlogger.Warn)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	cursorStore := store.NewCursorStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()

	// Initialize ethereum client
	ethClient, err := adapter.DialEthClient(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err))
	}
	defer ethClient.Close()

	ethereumClient, err := ethereum.NewClient(cfg.Ethereum.ChainID, ethClient, clockAdapter, cfg.Ethereum.StepSize)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create Ethereum client", zap.Error(err))
	}

	// Initialize NATS publisher
	natsPublisher, err := jetstream.NewPublisher(
		ctx,
		jetstream.Config{
			URL:             cfg.NATS.URL,
			StreamName:      cfg.NATS.StreamName,
			MaxReconnects:   cfg.NATS.MaxReconnects,
			ReconnectWait:   cfg.NATS.ReconnectWait,
			ConnectionName:  cfg.NATS.ConnectionName,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
		}, natsJS, jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer natsPublisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS JetStream", zap.String("stream", cfg.NATS.StreamName))

	ethSubscriber := ethereum.NewSubscriber(ethereum.Config{
		ChainID:       cfg.Ethereum.ChainID,
		PollInterval:  cfg.Ethereum.PollInterval,
		Confirmations: cfg.Ethereum.Confirmations,
		BatchSize:     cfg.Ethereum.BatchSize,
		Workers:       cfg.Ethereum.Workers,
	}, ethereumClient, clockAdapter)
	defer ethSubscriber.Close()

	eventEmitter := emitter.NewEmitter(
		ethSubscriber,
		natsPublisher,
		cursorStore,
		emitter.Config{
			ChainID:         cfg.Ethereum.ChainID,
			StartBlock:      cfg.Ethereum.StartBlock,
			CursorSaveFreq:  cfg.Cursor.SaveFrequency,
			CursorSaveDelay: cfg.Cursor.SaveDelay,
			Factories:       cfg.Contracts.FactoryAddresses(),
			Pools:           cfg.Contracts.Pools,
		},
		clockAdapter,
	)
	defer eventEmitter.Close()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := eventEmitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "emitter"))
		cancel()
	}

	// Give some time for the last checkpoint
	time.Sleep(time.Second)

	logger.Info("Staking Event Emitter stopped")
}
