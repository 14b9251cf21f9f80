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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/config"
	"github.com/kailas-cloud/tripwise/internal/db"
	dbRedis "github.com/kailas-cloud/tripwise/internal/db/redis"
	"github.com/kailas-cloud/tripwise/internal/domain"
	logpkg "github.com/kailas-cloud/tripwise/internal/logger"
	"github.com/kailas-cloud/tripwise/internal/metrics"
	contentrepo "github.com/kailas-cloud/tripwise/internal/repository/content"
	"github.com/kailas-cloud/tripwise/internal/repository/embcache"
	"github.com/kailas-cloud/tripwise/internal/repository/feedback"
	"github.com/kailas-cloud/tripwise/internal/repository/memory"
	chiTransport "github.com/kailas-cloud/tripwise/internal/transport/chi"
	lcProvider "github.com/kailas-cloud/tripwise/internal/transport/langchain"
	openaiTransport "github.com/kailas-cloud/tripwise/internal/transport/openai"
	"github.com/kailas-cloud/tripwise/internal/transport/sources"
	"github.com/kailas-cloud/tripwise/internal/usecase/acquisition"
	destinationuc "github.com/kailas-cloud/tripwise/internal/usecase/destination"
	embeddinguc "github.com/kailas-cloud/tripwise/internal/usecase/embedding"
	"github.com/kailas-cloud/tripwise/internal/usecase/genai"
	healthuc "github.com/kailas-cloud/tripwise/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/tripwise/internal/usecase/pipeline"
	qualityuc "github.com/kailas-cloud/tripwise/internal/usecase/quality"
	searchuc "github.com/kailas-cloud/tripwise/internal/usecase/search"
	"github.com/kailas-cloud/tripwise/internal/usecase/vectorstore"
	"github.com/kailas-cloud/tripwise/internal/version"
)

func main() {
	// .env is optional; exported variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tripwise",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("demo_mode", cfg.DemoMode()),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	fb, err := feedback.Open(cfg.Feedback.Path)
	if err != nil {
		logger.Fatal("Failed to open feedback store", zap.Error(err))
	}
	defer func() { _ = fb.Close() }()

	// Content store and embedder chain depend on the driver.
	var (
		repo   vectorstore.Repository
		pinger healthuc.DBPinger = fb
		cache  db.KVStore
	)
	switch cfg.Database.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))

		repo = contentrepo.New(store, cfg.Database.KeyPrefix, cfg.Embedding.Dimensions, contentrepo.HNSWConfig{
			M:           cfg.Database.HNSWM,
			EFConstruct: cfg.Database.HNSWEFConstruct,
		})
		pinger, cache = store, store
	default:
		logger.Warn("Using in-memory content store; records are lost on restart")
		repo = memory.New(cfg.Embedding.Dimensions)
	}

	embedder, err := buildEmbedder(&cfg, cache, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Release()

	kb := vectorstore.New(repo, embedder, logger).
		WithChunking(cfg.Embedding.StoreChunkSize, time.Duration(cfg.Embedding.StoreChunkDelayMs)*time.Millisecond)
	if err := kb.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create search index", zap.Error(err))
	}

	chain := genai.NewChain(logger, buildGenerators(&cfg, logger)...)

	acq := acquisition.New(buildSources(&cfg), chain, kb, cfg.Sources.Timeout(), logger)
	qualitySvc := qualityuc.New(fb, kb, cfg.Pipeline.QualityThreshold, logger)
	destSvc := destinationuc.New(acq, qualitySvc, kb, logger)
	searchSvc := searchuc.New(kb, chain, searchuc.Config{
		TopK:        cfg.Search.TopK,
		Threshold:   cfg.Search.SimilarityThreshold,
		Materialize: cfg.Search.Materialize,
		Timeout:     time.Duration(cfg.Search.TimeoutSec) * time.Second,
	}, logger)

	priority := make([]pipelineuc.Target, 0, len(cfg.Pipeline.PriorityDestinations))
	for _, p := range cfg.Pipeline.PriorityDestinations {
		priority = append(priority, pipelineuc.ParseTarget(p))
	}
	orchestrator := pipelineuc.New(destSvc, kb, qualitySvc, fb, pipelineuc.Config{
		Interval:       cfg.Pipeline.Interval(),
		UpdateBatch:    cfg.Pipeline.UpdateBatchSize,
		ExpansionCount: cfg.Pipeline.ExpansionCount,
		ItemDelay:      cfg.Pipeline.ItemDelay(),
		StaleAfter:     cfg.Pipeline.StaleAfter(),
		Priority:       priority,
	}, logger)

	healthSvc := healthuc.New(pinger, embedder, kb, qualitySvc, orchestrator, logger)

	server := chiTransport.NewServer(searchSvc, destSvc, qualitySvc, orchestrator, fb, healthSvc, logger)
	handler := chiTransport.NewRouter(server, logger, metrics.Middleware())

	if cfg.Pipeline.Enabled {
		orchestrator.Start(ctx)
		logger.Info("Pipeline scheduler started", zap.Duration("interval", cfg.Pipeline.Interval()))
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	orchestrator.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction -> Batcher.
// Without a credential the chain collapses to the unconfigured embedder (demo mode).
func buildEmbedder(cfg *config.Config, cache db.KVStore, logger *zap.Logger) (*embeddinguc.Batcher, error) {
	ec := cfg.Embedding
	delay := time.Duration(ec.BatchDelayMs) * time.Millisecond

	if cfg.DemoMode() {
		logger.Warn("Embedding API key missing; running in demo mode")
		b, err := embeddinguc.NewBatcher(domain.Unconfigured{}, ec.BatchConcurrency, delay, logger)
		if err != nil {
			return nil, fmt.Errorf("demo embedder: %w", err)
		}
		return b, nil
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cache != nil {
		ttl := time.Duration(ec.CacheTTLHours) * time.Hour
		embedder = embcache.New(base, cache, cfg.Database.KeyPrefix, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, "openai", ec.Model, logger)

	// Instruction prefix sits outside the cache so the cache key includes it.
	embedder = domain.NewInstructionEmbedder(embedder, map[domain.TaskType]string{
		domain.TaskDocument: ec.DocumentInstruction,
		domain.TaskQuery:    ec.QueryInstruction,
	})

	b, err := embeddinguc.NewBatcher(embedder, ec.BatchConcurrency, delay, logger)
	if err != nil {
		return nil, fmt.Errorf("batch embedder: %w", err)
	}
	logger.Info("Embedder created", zap.String("model", ec.Model), zap.Int("dimensions", ec.Dimensions))
	return b, nil
}

// buildGenerators returns the ordered provider chain. Providers without a
// credential are skipped; an empty chain serves fallbacks only.
func buildGenerators(cfg *config.Config, logger *zap.Logger) []domain.Generator {
	var out []domain.Generator
	if p := cfg.Generation.Primary; p.Enabled() {
		out = append(out, openaiTransport.NewChatProvider(&openaiTransport.ChatConfig{
			Name:    p.Name,
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: time.Duration(p.TimeoutSec) * time.Second,
		}))
	}
	if p := cfg.Generation.Secondary; p.Enabled() {
		prov, err := lcProvider.New(&lcProvider.Config{
			Name:    p.Name,
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: time.Duration(p.TimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Error("Secondary provider disabled", zap.Error(err))
		} else {
			out = append(out, prov)
		}
	}
	if len(out) == 0 {
		logger.Warn("No generation provider configured; enrichment uses fallbacks")
	}
	return out
}

func buildSources(cfg *config.Config) []acquisition.Source {
	client := sources.ClientConfig{
		UserAgent:         cfg.Sources.UserAgent,
		Timeout:           cfg.Sources.Timeout(),
		RequestsPerSecond: cfg.Sources.RequestsPerSecond,
		MaxRetries:        cfg.Sources.MaxRetries,
	}
	out := []acquisition.Source{
		sources.NewWikipedia(cfg.Sources.WikipediaURL, client),
		sources.NewNominatim(cfg.Sources.NominatimURL, client),
	}
	for _, s := range sources.DefaultStubs() {
		out = append(out, s)
	}
	return out
}
