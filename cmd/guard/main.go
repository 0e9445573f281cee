package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/config"
	"github.com/calldepth/trade-guard/internal/eth"
	"github.com/calldepth/trade-guard/internal/guard"
	"github.com/calldepth/trade-guard/internal/metrics"
	"github.com/calldepth/trade-guard/internal/output"
	"github.com/calldepth/trade-guard/internal/risklog"
	"github.com/calldepth/trade-guard/pkg/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	output.Setup(cfg.Logging)

	if len(os.Args) < 2 {
		log.Fatal().Msg("Usage: guard <intent.json>")
	}

	intent, err := loadIntent(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Str("path", os.Args[1]).Msg("Failed to load trade intent")
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.Addr)

	pool, err := eth.Dial(cfg.RPC.URLs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build endpoint pool")
	}
	reader := eth.NewReader(pool, cfg.RPC.ReadTimeout, nil)

	store, closeStore := buildStore(cfg)
	defer closeStore()

	pipeline := guard.NewPipeline(cfg, reader, store, nil)
	logger := output.NewLogger()

	start := time.Now()
	result := pipeline.Run(ctx, intent)
	logger.Count(result.OK)
	logger.LogResult(intent.Route, &result, time.Since(start))

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
	os.Stdout.Write(append(out, '\n'))

	if !result.OK {
		os.Exit(1)
	}
}

// loadIntent reads a TradeIntent from a JSON file.
func loadIntent(path string) (*types.TradeIntent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var intent types.TradeIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// buildStore picks the risk-event store backend from config.
func buildStore(cfg *config.Config) (risklog.Store, func()) {
	switch cfg.MEV.Backend {
	case "redis":
		store := risklog.NewRedisStore(cfg.MEV.RedisAddr)
		return store, func() { _ = store.Close() }
	default:
		return risklog.NewFileStore(cfg.MEV.QueueFile), func() {}
	}
}
