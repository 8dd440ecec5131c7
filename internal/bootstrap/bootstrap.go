// Package bootstrap wires configuration into adapters and services. The API
// server, the indexer and curationctl all build their object graph here.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/internal/adapters/cache"
	"github.com/adcatlas/curation-backend/internal/adapters/database"
	"github.com/adcatlas/curation-backend/internal/adapters/events"
	"github.com/adcatlas/curation-backend/internal/adapters/memory"
	"github.com/adcatlas/curation-backend/internal/adapters/search"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/redis"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/typesense"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	"github.com/adcatlas/curation-backend/pkg/config"
)

// Storage bundles the repositories of one persistence backend
type Storage struct {
	Tx         repositories.TxManager
	Records    repositories.CurationRecordRepository
	Evidence   repositories.EvidenceRepository
	Provenance repositories.ProvenanceRepository
	Reviews    repositories.ReviewRepository
	Staging    repositories.StagingRepository
	Jobs       repositories.EnrichmentJobRepository

	pg *postgres.Client
}

// OpenStorage connects the backend selected by STORAGE_DRIVER
func OpenStorage(cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on exit")
		return NewMemoryStorage(memory.NewStore()), nil
	case config.StorageDriverPostgres:
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgresStorage(pgClient), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewPostgresStorage builds the SQL-backed repositories
func NewPostgresStorage(pgClient *postgres.Client) *Storage {
	return &Storage{
		Tx:         database.NewTxManager(pgClient),
		Records:    database.NewCurationRecordAdapter(pgClient),
		Evidence:   database.NewEvidenceAdapter(pgClient),
		Provenance: database.NewProvenanceAdapter(pgClient),
		Reviews:    database.NewReviewAdapter(pgClient),
		Staging:    database.NewStagingAdapter(pgClient),
		Jobs:       database.NewEnrichmentJobAdapter(pgClient),
		pg:         pgClient,
	}
}

// NewMemoryStorage exposes an in-process store through the repository interfaces
func NewMemoryStorage(store *memory.Store) *Storage {
	return &Storage{
		Tx:         store,
		Records:    store.Records(),
		Evidence:   store.Evidence(),
		Provenance: store.Provenance(),
		Reviews:    store.Reviews(),
		Staging:    store.Staging(),
		Jobs:       store.Jobs(),
	}
}

// Migrate applies the SQL schema. The memory backend needs none.
func (s *Storage) Migrate(ctx context.Context) error {
	if s.pg == nil {
		return nil
	}
	return s.pg.Migrate(ctx)
}

// Close releases the database pool
func (s *Storage) Close() error {
	if s.pg == nil {
		return nil
	}
	return s.pg.Close()
}

// OpenRedis returns nil when Redis is disabled or unreachable
func OpenRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	client, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; using in-process cache and event bus")
		return nil
	}
	log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
	return client
}

// NewCache prefers Redis and falls back to an in-process cache
func NewCache(redisClient *redis.Client, defaultTTL time.Duration) providers.CacheProvider {
	if redisClient != nil {
		return cache.NewRedisAdapter(redisClient)
	}
	return cache.NewMemoryAdapter(defaultTTL, 2*defaultTTL)
}

// NewEventBus prefers Redis pub/sub and falls back to in-process fan-out
func NewEventBus(redisClient *redis.Client) providers.EventBus {
	if redisClient != nil {
		return events.NewRedisEventBus(redisClient)
	}
	return events.NewLocalEventBus()
}

// OpenCatalog returns nil when Typesense is disabled or unreachable
func OpenCatalog(ctx context.Context, cfg *config.Config) providers.CatalogWriter {
	if !cfg.Typesense.Enabled {
		return nil
	}
	client, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable; catalog sync disabled")
		return nil
	}
	if err := client.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to init Typesense schema; catalog sync disabled")
		return nil
	}
	return search.NewTypesenseCatalogWriter(client)
}

// Services is the curation application layer
type Services struct {
	Ledger     *services.ProvenanceLedger
	Diff       *services.DiffEngine
	Records    *services.RecordService
	Enrichment *services.EnrichmentService
	Gates      *services.GateService
	Promotion  *services.PromotionService
	Reviews    *services.ReviewWorkflow
	Staging    *services.StagingPipeline
}

// GateConfig translates curation settings into gate thresholds
func GateConfig(cfg config.CurationConfig) (services.GateConfig, error) {
	grade, err := entities.ParseEvidenceGrade(cfg.MinEvidenceGrade)
	if err != nil {
		return services.GateConfig{}, err
	}
	gc := services.DefaultGateConfig()
	gc.EvidenceMin = cfg.EvidenceMin
	gc.ManualEvidenceMin = cfg.ManualEvidenceMin
	if grade != "" {
		gc.MinGrade = grade
	}
	return gc, nil
}

// NewServices builds every curation service over one storage backend
func NewServices(
	cfg config.CurationConfig,
	st *Storage,
	cacheProvider providers.CacheProvider,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) (*Services, error) {
	gateCfg, err := GateConfig(cfg)
	if err != nil {
		return nil, err
	}

	locks := services.NewRecordLocks()
	ledger := services.NewProvenanceLedger(st.Records, st.Evidence, st.Provenance)
	diff := services.NewDiffEngine(st.Tx, st.Records, ledger, locks, eventBus, metrics)
	gates := services.NewGateService(
		st.Records,
		st.Evidence,
		services.NewDefaultGateEvaluator(gateCfg),
		cacheProvider,
		cfg.GateCacheTTLSeconds,
		metrics,
	)

	return &Services{
		Ledger:     ledger,
		Diff:       diff,
		Records:    services.NewRecordService(st.Tx, st.Records, st.Evidence, locks, eventBus),
		Enrichment: services.NewEnrichmentService(st.Tx, st.Jobs, st.Records, diff),
		Gates:      gates,
		Promotion:  services.NewPromotionService(st.Tx, st.Records, gates, locks, eventBus, metrics),
		Reviews: services.NewReviewWorkflow(
			st.Tx, st.Reviews, st.Records, st.Evidence, diff,
			services.ConfidenceThresholdPolicy{Threshold: cfg.AutoApproveThreshold},
			cfg.BulkConcurrency, eventBus, metrics,
		),
		Staging: services.NewStagingPipeline(st.Tx, st.Staging, cfg.BulkConcurrency, eventBus, metrics),
	}, nil
}

// NewCatalogSync builds the catalog materializer
func NewCatalogSync(st *Storage, writer providers.CatalogWriter, eventBus providers.EventBus) *services.CatalogSyncService {
	return services.NewCatalogSyncService(st.Records, st.Staging, writer, eventBus)
}
