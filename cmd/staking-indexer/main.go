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

	"github.com/feral-file/staking-indexer/internal/accounting"
	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/bridge"
	"github.com/feral-file/staking-indexer/internal/config"
	"github.com/feral-file/staking-indexer/internal/factory"
	"github.com/feral-file/staking-indexer/internal/history"
	"github.com/feral-file/staking-indexer/internal/ledger"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/pools"
	"github.com/feral-file/staking-indexer/internal/processor"
	"github.com/feral-file/staking-indexer/internal/providers/ethereum"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/tokens"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		Environment:     cfg.Environment,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "staking-indexer",
		Tags: map[string]string{
			"service": "staking-indexer",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Staking Indexer")

	// Connect to database
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN(), gormlogger.Warn)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if cfg.Database.Driver != config.DriverSQLite {
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewStore(db)

	// The RPC connection is only used for best-effort ERC20 metadata
	ethClient, err := adapter.DialEthClient(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err))
	}
	defer ethClient.Close()

	fetcher, err := ethereum.NewMetadataFetcher(ethClient, cfg.Ethereum.MetadataCacheSize)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create metadata fetcher", zap.Error(err))
	}

	poolRegistry := pools.NewRegistry()
	tokenRegistry := tokens.NewRegistry(fetcher)

	eventProcessor := processor.New(processor.Deps{
		Store:   dataStore,
		Engine:  accounting.NewEngine(cfg.Accounting.Precision),
		Pools:   poolRegistry,
		Ledger:  ledger.New(),
		Tokens:  tokenRegistry,
		History: history.NewJournal(),
		Factory: factory.NewWorkflow(factory.NewKinds(cfg.Contracts.FactoryKinds()), poolRegistry, tokenRegistry),
	})

	eventBridge, err := bridge.NewBridge(
		ctx,
		bridge.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			ConsumerName:   cfg.NATS.ConsumerName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			AckWaitTimeout: cfg.NATS.AckWait,
			MaxDeliver:     cfg.NATS.MaxDeliver,
			ConnectRetries: cfg.NATS.ConnectRetries,
		},
		adapter.NewNatsJetStream(),
		eventProcessor,
		adapter.NewJSON(),
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event bridge", zap.Error(err))
	}
	defer eventBridge.Close()
	logger.InfoCtx(ctx, "Event bridge created",
		zap.String("stream", cfg.NATS.StreamName),
		zap.String("consumer", cfg.NATS.ConsumerName),
		zap.Uint64("precision", cfg.Accounting.Precision))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := eventBridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "bridge"))
		cancel()
		exitCode = 1
	}

	time.Sleep(time.Second)

	logger.Info("Staking Indexer stopped", zap.Int("exit_code", exitCode))
	if exitCode != 0 {
		eventBridge.Close()
		logger.Flush(2 * time.Second)
		os.Exit(exitCode)
	}
}
