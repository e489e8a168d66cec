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

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/credit-markets/subgraphs/internal/adapter"
	"github.com/credit-markets/subgraphs/internal/bridge"
	"github.com/credit-markets/subgraphs/internal/config"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/providers/ethereum"
	"github.com/credit-markets/subgraphs/internal/providers/jetstream"
	"github.com/credit-markets/subgraphs/internal/projector"
	"github.com/credit-markets/subgraphs/internal/registrar"
	"github.com/credit-markets/subgraphs/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadProjectorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "projector",
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Projector")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)
	logger.InfoCtx(ctx, "Connected to database")

	// Dial the Ethereum node for contract reads
	ethDialer := adapter.NewEthClientDialer()
	ethClient, err := ethDialer.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err))
	}
	defer ethClient.Close()

	chainReader, err := ethereum.NewChainReader(ethClient)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create chain reader", zap.Error(err))
	}

	// Initialize NATS subscriber
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()
	subscriber, err := jetstream.NewSubscriber(natsJS, cfg.NATS.URL, jsonAdapter,
		cfg.Ethereum.ChainID, cfg.NATS.ConsumerName,
		nats.Name(cfg.NATS.ConnectionName),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS subscriber", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to NATS JetStream")

	reg := registrar.New(cfg.Ethereum.ChainID, dataStore)
	proj := projector.New(cfg.Ethereum.ChainID, dataStore, chainReader, reg, cfg.Ethereum.RegistryAddress)

	eventBridge := bridge.NewBridge(subscriber, proj)
	defer eventBridge.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := eventBridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "bridge"))
		cancel()
	}

	// Give some time for graceful shutdown
	time.Sleep(time.Second)

	logger.Info("Projector stopped")
}
