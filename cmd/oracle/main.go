package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/config"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/metrics"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/aggregator"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/feed"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/scheduler"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/submitter"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/volatility"
)

const version = "0.1.0-dev"

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	dryRun     = flag.Bool("dry-run", false, "Compute and log prices but never submit on-chain")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("pareto-oracle-bot version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		cfg.Chain.PrivateKey = ""
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting oracle bot", "version", version, "assets", len(cfg.Assets))
	if cfg.Chain.PrivateKey == "" {
		logger.Warn("No signing credential configured - running in print-only mode")
	}

	metrics.Init()
	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("Serving metrics", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server stopped", "error", err.Error())
			}
		}()
	}

	rpcClient, err := ethclient.Dial(cfg.Chain.RPCEndpoint)
	if err != nil {
		logger.Fatal("Failed to connect to ledger RPC", "endpoint", cfg.Chain.RPCEndpoint, "error", err.Error())
	}
	defer rpcClient.Close()

	sub, err := submitter.New(submitter.Config{
		Client:         rpcClient,
		ChainID:        cfg.Chain.ChainID,
		PrivateKey:     cfg.Chain.PrivateKey,
		PriceDecimals:  cfg.Chain.PriceDecimals,
		GasLimit:       cfg.Chain.GasLimit,
		MaxAttempts:    cfg.Chain.MaxAttempts,
		ConfirmTimeout: cfg.Chain.ConfirmTimeout.ToDuration(),
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to create submitter", "error", err.Error())
	}

	slots, err := buildSlots(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build asset pipelines", "error", err.Error())
	}

	sched := scheduler.New(scheduler.Config{
		Interval:          cfg.Interval.ToDuration(),
		MinSubmitInterval: cfg.Submission.MinInterval.ToDuration(),
		MaxMovePct:        cfg.Submission.MaxMovePct,
		Logger:            logger,
	}, slots, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	cancel()
	sched.Stop()
}

// buildSlots constructs one pipeline slot per configured asset.
func buildSlots(cfg *config.Config, logger *logging.Logger) ([]*scheduler.Slot, error) {
	slots := make([]*scheduler.Slot, 0, len(cfg.Assets))

	for _, asset := range cfg.Assets {
		clients := make([]feed.Client, 0, len(asset.Feeds))
		for _, feedCfg := range asset.Feeds {
			clientCfg := make(map[string]interface{}, len(feedCfg.Config)+2)
			for k, v := range feedCfg.Config {
				clientCfg[k] = v
			}
			clientCfg["logger"] = logger
			clientCfg["timeout"] = cfg.FeedTimeout.ToDuration()

			client, err := feed.Create(feedCfg.Type, clientCfg)
			if err != nil {
				return nil, fmt.Errorf("asset %s feed %s: %w", asset.Symbol, feedCfg.Type, err)
			}
			clients = append(clients, client)
		}

		agg, err := aggregator.New(aggregator.Config{
			Clients:         clients,
			Quorum:          asset.EffectiveQuorum(cfg.Aggregation.Quorum),
			Deadline:        cfg.FeedTimeout.ToDuration(),
			Staleness:       cfg.Aggregation.Staleness.ToDuration(),
			SpreadTolerance: cfg.Aggregation.SpreadTolerance,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Symbol, err)
		}

		est, err := volatility.NewEstimator(asset.Symbol, cfg.Volatility.Window, cfg.Interval.ToDuration())
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Symbol, err)
		}

		slots = append(slots, scheduler.NewSlot(
			asset.Symbol,
			common.HexToAddress(asset.Contract),
			agg,
			est,
		))

		logger.Info("Configured asset",
			"symbol", asset.Symbol,
			"price_type", asset.PriceType,
			"contract", asset.Contract,
			"feeds", len(clients))
	}

	return slots, nil
}
