// Package di wires the application together. The container owns construction
// order and shared resources; everything downstream receives its dependencies
// through constructors.
package di

import (
	"context"
	"math/rand"
	"time"

	"polymath-backend/internal/config"
	"polymath-backend/internal/repository"
	"polymath-backend/internal/repository/ddb"
	"polymath-backend/internal/service/embedding"
	"polymath-backend/internal/service/llm"
	"polymath-backend/internal/service/synthesis"
	appErrors "polymath-backend/pkg/errors"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

const metricsNamespace = "polymath"

// Container holds the constructed application graph.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   repository.Store
	Engine  *synthesis.Engine
	Metrics *synthesis.Collector
}

// NewContainer builds the full dependency graph from configuration.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load configuration")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to initialize logger")
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load AWS configuration")
	}
	store := ddb.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)

	provider, err := llm.NewGenAIProvider(ctx, cfg.GenAIAPIKey, cfg.GenerationModel)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to create generation provider")
	}
	generator := llm.NewService(llm.NewBreakerProvider(provider, logger))

	embedder, err := embedding.NewGenAIEmbedder(ctx, cfg.GenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to create embedder")
	}
	guardedEmbedder := embedding.NewBreakerEmbedder(embedder, logger)

	metrics := synthesis.NewCollector(metricsNamespace)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := synthesis.NewEngine(store, generator, guardedEmbedder, cfg.Synthesis, logger, rng, metrics)

	logger.Info("container initialized",
		zap.String("environment", cfg.Environment),
		zap.String("table", cfg.TableName),
		zap.String("generation_model", cfg.GenerationModel),
		zap.String("embedding_model", cfg.EmbeddingModel))

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Engine:  engine,
		Metrics: metrics,
	}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

// Shutdown flushes shared resources. Safe to call on a partially built
// container.
func (c *Container) Shutdown() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
