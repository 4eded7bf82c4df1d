package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/cache"
	"github.com/tradeops-labs/orderscope/internal/config"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/supervisor"
	"github.com/tradeops-labs/orderscope/internal/workers"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: orderscope <query>")
		os.Exit(2)
	}
	query := strings.Join(os.Args[1:], " ")

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.Observability.MetricsPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()

	// Shared finding cache: Redis when configured, in-process otherwise.
	var findingCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedis(cfg.Cache.RedisAddr, logger)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process cache",
				zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			findingCache = rc
		}
	}
	if findingCache == nil {
		local := cache.NewLocal(cfg.Cache.LocalCapacity, logger)
		defer local.Close()
		findingCache = local
	}

	r := runner.New(findingCache, workers.MemoryAnalyzer{}, runner.Options{
		MaxAttempts:      cfg.Engine.MaxAttempts,
		BackoffMin:       cfg.Engine.BackoffMin,
		BackoffMax:       cfg.Engine.BackoffMax,
		CacheTTL:         cfg.Cache.TTL,
		AnalyzeAlways:    cfg.Analysis.Always,
		AnalyzeThreshold: cfg.Analysis.SizeThreshold,
	}, logger)

	deps := workers.FakeDeps(logger, "ORD12345678", "A123", "B456")
	engine := supervisor.New(supervisor.KeywordClassifier{}, nil, r,
		workers.Set(deps), cfg.Engine.MaxSteps, logger)

	st, err := engine.Investigate(context.Background(), query)
	if err != nil {
		logger.Fatal("Investigation failed", zap.Error(err))
	}

	for _, entry := range st.Transcript() {
		actor := "supervisor"
		if !entry.Supervisor {
			actor = entry.Worker.String()
		}
		fmt.Printf("[%s/%s] %s\n", entry.Phase, actor, entry.Message)
	}
	fmt.Println()
	fmt.Println(st.FinalAnswer())
}
