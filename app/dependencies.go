package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/upb/recipe-api/config"
	"github.com/upb/recipe-api/internal/observability"
	"github.com/upb/recipe-api/internal/rag"
	"github.com/upb/recipe-api/repositories"
	"github.com/upb/recipe-api/repositories/cache"
	"github.com/upb/recipe-api/repositories/files"
	"github.com/upb/recipe-api/repositories/postgres"
	"github.com/upb/recipe-api/services"
	"github.com/upb/recipe-api/services/providers"
	"github.com/upb/recipe-api/services/providers/ollama"
	"github.com/upb/recipe-api/services/providers/openai"
	"github.com/upb/recipe-api/services/recipes"
	"github.com/upb/recipe-api/services/retrieval"
	"github.com/upb/recipe-api/services/synthesis"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection; everything here is built once at
// startup and shared read-only by request handlers.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil unless the dataset lives in PostgreSQL
	Logger *zap.Logger

	// Data
	Dataset   *repositories.Dataset
	Retriever *retrieval.Retriever

	// Model backends
	Providers *providers.Registry
	Embedder  providers.Embedder
	Generator providers.Generator

	// Core
	Pipeline    *rag.Pipeline
	Synthesizer *synthesis.Synthesizer
	Recipes     *recipes.Service

	// Cache
	Cache repositories.RecommendationCache
	redis *cache.RedisCache

	// Observability
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// GenerateLimiter throttles /generate_ai_recipe; nil when disabled
	GenerateLimiter *rate.Limiter
}

// NewDependencies creates and wires up all application dependencies.
// A dataset that is missing, empty or misaligned is fatal.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics()

	if err := deps.initDataset(ctx); err != nil {
		deps.closeQuietly()
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	if err := deps.initProviders(); err != nil {
		deps.closeQuietly()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.checkEmbedder(ctx); err != nil {
		deps.closeQuietly()
		return nil, fmt.Errorf("embedder does not match dataset: %w", err)
	}

	deps.initCache(ctx)
	deps.initServices()

	if cfg.RateLimit.Enabled {
		deps.GenerateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Int("records", deps.Dataset.Len()),
		zap.Int("dimension", deps.Dataset.Dim()),
		zap.String("embedder", deps.Embedder.Name()),
		zap.String("generator", deps.Generator.Name()))
	return deps, nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
}

// initDataset loads records and embeddings and builds the retriever
func (d *Dependencies) initDataset(ctx context.Context) error {
	if d.Config.Dataset.Source == config.DatasetSourcePostgres {
		db, err := postgres.NewDB(d.Config.Database, d.Logger)
		if err != nil {
			return err
		}
		d.DB = db
	}

	source, err := NewDatasetSource(d.Config, d.DB, d.Logger)
	if err != nil {
		return err
	}

	start := time.Now()
	ds, err := source.Load(ctx)
	if err != nil {
		return err
	}

	retriever, err := retrieval.NewRetriever(ds.Embeddings())
	if err != nil {
		return err
	}

	d.Dataset = ds
	d.Retriever = retriever
	d.Logger.Info("dataset loaded",
		zap.String("source", d.Config.Dataset.Source),
		zap.Int("records", ds.Len()),
		zap.Int("dimension", ds.Dim()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// initProviders registers the configured embedding and generation backends
func (d *Dependencies) initProviders() error {
	registry := providers.NewRegistry()

	embedder, err := NewEmbedder(d.Config.Embedder)
	if err != nil {
		return err
	}
	if err := registry.RegisterEmbedder(embedder); err != nil {
		return err
	}

	generator, err := NewGenerator(d.Config.Generator)
	if err != nil {
		return err
	}
	if err := registry.RegisterGenerator(generator); err != nil {
		return err
	}

	d.Providers = registry
	if d.Embedder, err = registry.Embedder(d.Config.Embedder.Provider); err != nil {
		return err
	}
	if d.Generator, err = registry.Generator(d.Config.Generator.Provider); err != nil {
		return err
	}

	d.Logger.Info("providers registered",
		zap.Strings("embedders", registry.ListEmbedders()),
		zap.Strings("generators", registry.ListGenerators()))
	return nil
}

// checkEmbedder embeds a sample query and requires its dimension to match
// the dataset. An embedder that cannot be reached yet is only logged; a
// dimension mismatch would fail every request and is fatal.
func (d *Dependencies) checkEmbedder(ctx context.Context) error {
	timeout := d.Config.Embedder.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := d.Embedder.Embed(ctx, rag.Query{Ingredients: "tomato"}.Text())
	if err != nil {
		d.Logger.Warn("embedder unreachable at startup, dimension not verified",
			zap.String("embedder", d.Embedder.Name()),
			zap.Error(err))
		return nil
	}

	if len(vec) != d.Dataset.Dim() {
		return services.NewDomainError(services.ErrorTypeMissingResource,
			fmt.Sprintf("embedder %q returns %d dimensions, dataset has %d", d.Embedder.Name(), len(vec), d.Dataset.Dim()),
			nil).
			WithDetail("embedder_dimension", len(vec)).
			WithDetail("dataset_dimension", d.Dataset.Dim())
	}
	return nil
}

// initCache connects to Redis. An unreachable server is not fatal: cache
// reads and writes are bypassed until it comes back.
func (d *Dependencies) initCache(ctx context.Context) {
	if !d.Config.Cache.Enabled {
		d.Cache = cache.Nop{}
		d.Logger.Info("recommendation cache disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     d.Config.Cache.Addr,
		Password: d.Config.Cache.Password,
		DB:       d.Config.Cache.DB,
	})
	d.redis = cache.NewRedisCache(client)
	d.Cache = d.redis

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.redis.Ping(pingCtx); err != nil {
		d.Logger.Warn("redis unavailable, recommendations will not be cached",
			zap.String("addr", d.Config.Cache.Addr),
			zap.Error(err))
		return
	}
	d.Logger.Info("redis connection established", zap.String("addr", d.Config.Cache.Addr))
}

func (d *Dependencies) initServices() {
	g := d.Config.Generator

	d.Pipeline = rag.NewPipeline(d.Embedder, d.Retriever, d.Dataset)
	d.Synthesizer = synthesis.NewSynthesizer(d.Generator, synthesis.NewWordTokenizer(), synthesis.Config{
		MaxInputTokens: g.MaxInputTokens,
		MaxNewTokens:   g.MaxNewTokens,
		Temperature:    g.Temperature,
		TopK:           g.TopK,
		TopP:           g.TopP,
		StopToken:      g.StopToken,
		Timeout:        g.Timeout,
		MaxConcurrency: int64(g.MaxConcurrency),
	}, d.Logger)
	d.Recipes = recipes.NewService(d.Pipeline, d.Synthesizer, d.Cache, d.Config.Cache.TTL, d.Metrics, d.Logger)
}

// NewDatasetSource returns the loader selected by cfg.Dataset.Source. db is
// required for the postgres source.
func NewDatasetSource(cfg *config.Config, db *postgres.DB, logger *zap.Logger) (repositories.DatasetSource, error) {
	switch cfg.Dataset.Source {
	case config.DatasetSourceFiles:
		return files.NewSource(cfg.Dataset.RecipesPath, cfg.Dataset.EmbeddingsPath, logger), nil
	case config.DatasetSourcePostgres:
		if db == nil {
			return nil, errors.New("postgres dataset source requires a database connection")
		}
		return postgres.NewRecipeRepository(db.DB, cfg.Dataset.Table, logger), nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Dataset.Source)
	}
}

// NewEmbedder builds the embedding backend named by cfg.Provider
func NewEmbedder(cfg config.ModelConfig) (providers.Embedder, error) {
	pc := providerConfig(cfg)
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.NewEmbedder(pc), nil
	case config.ProviderOpenAI:
		return openai.NewEmbedder(pc), nil
	default:
		return nil, fmt.Errorf("%w: embedder %q", providers.ErrProviderNotFound, cfg.Provider)
	}
}

// NewGenerator builds the generation backend named by cfg.Provider
func NewGenerator(cfg config.GeneratorConfig) (providers.Generator, error) {
	pc := providerConfig(cfg.ModelConfig)
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.NewGenerator(pc), nil
	case config.ProviderOpenAI:
		return openai.NewGenerator(pc), nil
	default:
		return nil, fmt.Errorf("%w: generator %q", providers.ErrProviderNotFound, cfg.Provider)
	}
}

func providerConfig(cfg config.ModelConfig) providers.ProviderConfig {
	pc := providers.DefaultProviderConfig()
	pc.APIKey = cfg.APIKey
	pc.BaseURL = cfg.BaseURL
	pc.Model = cfg.Model
	if cfg.Timeout > 0 {
		pc.Timeout = cfg.Timeout
	}
	return pc
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		} else {
			d.Logger.Info("redis connection closed")
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}

func (d *Dependencies) closeQuietly() {
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
