package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
)

// GateService loads a record with its evidence and evaluates its gates.
// Results are cached per record version, so any write invalidates them.
type GateService struct {
	records   repositories.CurationRecordRepository
	evidence  repositories.EvidenceRepository
	evaluator *GateEvaluator
	cache     providers.CacheProvider
	cacheTTL  int
	metrics   *observability.Metrics
}

// NewGateService creates a new gate service. cache and metrics may be nil.
func NewGateService(
	records repositories.CurationRecordRepository,
	evidence repositories.EvidenceRepository,
	evaluator *GateEvaluator,
	cache providers.CacheProvider,
	cacheTTLSeconds int,
	metrics *observability.Metrics,
) *GateService {
	return &GateService{
		records:   records,
		evidence:  evidence,
		evaluator: evaluator,
		cache:     cache,
		cacheTTL:  cacheTTLSeconds,
		metrics:   metrics,
	}
}

func gateCacheKey(recordID string, version int64) string {
	return fmt.Sprintf("gate:%s:v%d", recordID, version)
}

// Check returns the gate result for the record's current version
func (s *GateService) Check(ctx context.Context, recordID string) (*entities.GateCheckResult, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.CheckRecord(ctx, record)
}

// CheckRecord evaluates an already loaded record
func (s *GateService) CheckRecord(ctx context.Context, record *entities.CurationRecord) (*entities.GateCheckResult, error) {
	key := gateCacheKey(record.ID, record.Version)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	evidence, err := s.evidence.GetByIDs(ctx, record.EvidenceRefs)
	if err != nil {
		return nil, err
	}
	result := s.evaluator.Evaluate(GateInput{Record: record, Evidence: evidence})

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache gate result")
			}
		}
	}
	return &result, nil
}

func (s *GateService) fromCache(ctx context.Context, key string) (*entities.GateCheckResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("gate cache lookup failed")
		}
		observability.RecordCacheLookup(ctx, s.metrics, false)
		return nil, false
	}
	var result entities.GateCheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		observability.RecordCacheLookup(ctx, s.metrics, false)
		return nil, false
	}
	observability.RecordCacheLookup(ctx, s.metrics, true)
	return &result, true
}
