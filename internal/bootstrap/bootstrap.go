// Package bootstrap wires the binaries from environment configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/influence/internal/util"
	"github.com/OFFIS-RIT/influence/pkg/ai"
	oai "github.com/OFFIS-RIT/influence/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/influence/pkg/ai/openai"
	"github.com/OFFIS-RIT/influence/pkg/extract"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/logger/console"
	"github.com/OFFIS-RIT/influence/pkg/logger/file"
	"github.com/OFFIS-RIT/influence/pkg/ner"
	"github.com/OFFIS-RIT/influence/pkg/pipeline"
	"github.com/OFFIS-RIT/influence/pkg/staging"
	stagingio "github.com/OFFIS-RIT/influence/pkg/staging/io"
	stagingmongo "github.com/OFFIS-RIT/influence/pkg/staging/mongo"
	stagings3 "github.com/OFFIS-RIT/influence/pkg/staging/s3"
	"github.com/OFFIS-RIT/influence/pkg/store"
	"github.com/OFFIS-RIT/influence/pkg/store/memory"
	neostore "github.com/OFFIS-RIT/influence/pkg/store/neo4j"
	pgstore "github.com/OFFIS-RIT/influence/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config collects the settings of all binaries.
type Config struct {
	Debug     bool
	LogLevel  string
	LogFormat string
	LogFile   string

	DatabaseURL string

	// GraphBackend is postgres, neo4j or memory.
	GraphBackend  string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// StagingSource is fs, s3 or mongo.
	StagingSource string
	StagingDir    string
	S3            stagings3.NewBucketFileStoreParams
	MongoURI      string
	MongoDatabase string

	// AIAdapter is openai, ollama or none.
	AIAdapter      string
	AIChatURL      string
	AIChatKey      string
	AIExtractModel string
	AIParallel     int

	Aliases []string

	// LockTTL is the lease of a dataset run lock.
	LockTTL time.Duration
}

// ConfigFromEnv reads Config from the environment.
func ConfigFromEnv() Config {
	return Config{
		Debug:     util.GetEnvBool("DEBUG", false),
		LogLevel:  util.GetEnvString("LOG_LEVEL", "info"),
		LogFormat: util.GetEnvString("LOG_FORMAT", "text"),
		LogFile:   util.GetEnv("LOG_FILE"),

		DatabaseURL: util.GetEnv("DATABASE_URL"),

		GraphBackend:  util.GetEnvString("GRAPH_BACKEND", "postgres"),
		Neo4jURI:      util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     util.GetEnvString("NEO4J_USER", "neo4j"),
		Neo4jPassword: util.GetEnv("NEO4J_PASSWORD"),
		Neo4jDatabase: util.GetEnv("NEO4J_DATABASE"),

		StagingSource: util.GetEnvString("STAGING_SOURCE", "fs"),
		StagingDir:    util.GetEnvString("STAGING_DIR", "./staging"),
		S3: stagings3.NewBucketFileStoreParams{
			Bucket:    util.GetEnv("AWS_BUCKET"),
			Prefix:    util.GetEnv("AWS_PREFIX"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			Region:    util.GetEnvString("AWS_REGION", "eu-west-2"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
		},
		MongoURI:      util.GetEnvString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: util.GetEnvString("MONGO_DB", "influence"),

		AIAdapter:      util.GetEnvString("AI_ADAPTER", "openai"),
		AIChatURL:      util.GetEnv("AI_CHAT_URL"),
		AIChatKey:      util.GetEnv("AI_CHAT_KEY"),
		AIExtractModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
		AIParallel:     util.GetEnvInt("AI_PARALLEL_REQ", 4),

		Aliases: util.GetEnvList("NER_ALIASES"),

		LockTTL: util.GetEnvDuration("RUN_LOCK_TTL", 5*time.Minute),
	}
}

// InitLogger installs the console logger and, with LogFile set, the file
// logger. The returned function flushes and closes them.
func InitLogger(cfg Config) func() {
	var instances []logger.LoggerInstance
	// Fatal exits in the first backend, so the file goes first.
	if cfg.LogFile != "" {
		instances = append(instances, file.NewFileLogger(file.FileLoggerParams{
			Path:  cfg.LogFile,
			Debug: cfg.Debug,
		}))
	}
	instances = append(instances, console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}))
	logger.Init(instances...)
	return func() {
		_ = logger.Close()
	}
}

// OpenPool connects to PostgreSQL.
func OpenPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	// The database container may still be starting.
	_, err = util.RetryWithBackoff(ctx, 5, time.Second, func(ctx context.Context) (struct{}, error) {
		err := pool.Ping(ctx)
		if err != nil {
			logger.Warn("[Bootstrap] Database not reachable yet", "err", err)
		}
		return struct{}{}, err
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenGraphStore opens the configured graph backend. The postgres backend
// uses pool, which stays owned by the caller.
func OpenGraphStore(ctx context.Context, cfg Config, pool *pgxpool.Pool) (store.Store, error) {
	switch cfg.GraphBackend {
	case "postgres", "":
		if pool == nil {
			return nil, fmt.Errorf("postgres graph backend needs a database pool")
		}
		return pgstore.NewGraphDBStoreWithConnection(ctx, pool)
	case "neo4j":
		return neostore.NewGraphStore(ctx, neostore.NewGraphStoreParams{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
	case "memory":
		logger.Warn("[Bootstrap] Using the in-memory graph store, nothing is persisted")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.GraphBackend)
	}
}

// OpenStagingSource opens the configured staging area. The returned
// function releases it.
func OpenStagingSource(ctx context.Context, cfg Config) (staging.Source, func(), error) {
	noop := func() {}
	switch cfg.StagingSource {
	case "fs", "":
		return stagingio.NewSource(cfg.StagingDir), noop, nil
	case "s3":
		src, err := stagings3.NewSource(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	case "mongo":
		src, err := stagingmongo.NewCacheSource(ctx, stagingmongo.NewCacheSourceParams{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
		if err != nil {
			return nil, noop, err
		}
		return src, func() { _ = src.Close(context.Background()) }, nil
	default:
		return nil, noop, fmt.Errorf("unknown staging source %q", cfg.StagingSource)
	}
}

// NewAIClient creates the structured output client of cfg.AIAdapter. It
// returns nil for the none adapter.
func NewAIClient(cfg Config) (ai.Client, error) {
	switch cfg.AIAdapter {
	case "none":
		return nil, nil
	case "ollama":
		return oai.NewExtractOllamaClient(oai.NewExtractOllamaClientParams{
			ExtractionModel:       cfg.AIExtractModel,
			BaseURL:               cfg.AIChatURL,
			ApiKey:                cfg.AIChatKey,
			MaxConcurrentRequests: int64(cfg.AIParallel),
		})
	case "openai", "":
		return gai.NewExtractOpenAIClient(gai.NewExtractOpenAIClientParams{
			ExtractionModel: cfg.AIExtractModel,
			ChatURL:         cfg.AIChatURL,
			ChatKey:         cfg.AIChatKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai adapter %q", cfg.AIAdapter)
	}
}

// NewEntityExtractor returns the cached AI extractor, or ner.Noop when no
// AI adapter is configured.
func NewEntityExtractor(cfg Config) (ner.EntityExtractor, ai.Client, error) {
	client, err := NewAIClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		logger.Warn("[Bootstrap] No AI adapter, organization names come from aliases and clause splitting only")
		return ner.Noop{}, nil, nil
	}
	return ner.NewCachedExtractor(ner.NewAIExtractor(client)), client, nil
}

// NewRunner wires the builders for s and src.
func NewRunner(cfg Config, s store.Store, src staging.Source, entities ner.EntityExtractor) *pipeline.Runner {
	extractor := extract.NewExtractor(extract.NewExtractorParams{
		Entities: entities,
		Aliases:  cfg.Aliases,
	})
	return pipeline.NewRunner(
		src,
		pipeline.NewInterestsBuilder(s, extractor),
		pipeline.NewFundingBuilder(s),
	)
}
