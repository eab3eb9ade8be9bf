package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"farmledger/config"
	"farmledger/core"
	"farmledger/core/genesis"
	"farmledger/crypto"
	"farmledger/indexer"
	"farmledger/observability"
	"farmledger/observability/logging"
	telemetry "farmledger/observability/otel"
	"farmledger/rpc"
	"farmledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML document (overrides config GenesisFile)")
	exportFlag := flag.String("export-events", "", "Write the indexed event history to this Parquet file and exit")
	flag.Parse()

	var err error
	if path := strings.TrimSpace(*exportFlag); path != "" {
		err = exportEvents(*configFile, path)
	} else {
		err = run(*configFile, *genesisFlag)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "farmd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, genesisOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("FARM_ENV"))
	logger := logging.SetupWithOptions("farmd", env, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   true,
	})
	logger.Info("configuration loaded",
		slog.String("network", cfg.NetworkName),
		slog.String("rpc", cfg.RPCAddress),
		slog.String("data_dir", cfg.DataDir),
		logging.MaskField("jwt_secret", cfg.Auth.JWTSecret),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	node, err := core.NewNode(db, logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer node.Close()

	store, err := indexer.Open(cfg.Indexer.DSN, logger)
	if err != nil {
		return fmt.Errorf("open indexer: %w", err)
	}
	defer store.Close()
	store.SetRetention(cfg.Indexer.Retention)

	hub := rpc.NewHub(logger)
	node.Subscribe(store)
	node.Subscribe(observability.Events())
	node.Subscribe(hub)

	genesisPath := strings.TrimSpace(genesisOverride)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if err := bootstrap(node, genesisPath, logger); err != nil {
		return err
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "farmd",
		Environment: env,
		Ledger:      ledgerIdentity(node, cfg.NetworkName),
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	node.Pauses().Set(core.PauseModule, cfg.Pauses.Farm)
	if cfg.Pauses.Farm {
		logger.Warn("farm module paused by configuration")
	}

	server := rpc.NewServer(node, rpc.Options{
		Auth:     rpc.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:  rpc.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Events:   store,
		Hub:      hub,
		Logger:   logger,
		MaxConns: cfg.RPCMaxConnections,
	})

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return node.Run(gctx, cfg.BlockInterval()) })
	group.Go(func() error { return server.Start(gctx, cfg.RPCAddress) })
	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("farmd stopped", slog.Uint64("height", node.Height()))
	return err
}

// ledgerIdentity describes the bootstrapped farm for telemetry resources.
func ledgerIdentity(node *core.Node, network string) telemetry.Ledger {
	id := telemetry.Ledger{
		Network:       network,
		ModuleAddress: crypto.FromRaw(node.ModuleAddress()).String(),
	}
	if params, err := node.FarmParams(); err == nil {
		id.RewardAsset = params.RewardAsset
	}
	return id
}

// bootstrap applies the genesis document to an empty ledger. A ledger that
// was already bootstrapped ignores the document.
func bootstrap(node *core.Node, path string, logger *slog.Logger) error {
	if node.Bootstrapped() {
		logger.Info("ledger restored", slog.Uint64("height", node.Height()))
		return nil
	}
	if path == "" {
		return fmt.Errorf("ledger is empty and no genesis file was provided")
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	if _, err := node.ApplyGenesis(spec); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	return nil
}

func exportEvents(configPath, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("farmd", strings.TrimSpace(os.Getenv("FARM_ENV")))
	store, err := indexer.Open(cfg.Indexer.DSN, logger)
	if err != nil {
		return fmt.Errorf("open indexer: %w", err)
	}
	defer store.Close()
	rows, err := store.ExportParquet(context.Background(), out)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d events to %s\n", rows, out)
	return nil
}
