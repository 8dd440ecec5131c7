package services

import (
	"context"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
)

// warmStates are the lifecycle states reviewers open the gate checklist for
var warmStates = []entities.LifecycleState{entities.LifecyclePendingReview, entities.LifecycleConfirmed}

// GateWarmingService precomputes gate results for records awaiting promotion
type GateWarmingService struct {
	records  repositories.CurationRecordRepository
	gates    *GateService
	pageSize int
}

// NewGateWarmingService creates a new gate warming service
func NewGateWarmingService(records repositories.CurationRecordRepository, gates *GateService) *GateWarmingService {
	return &GateWarmingService{
		records:  records,
		gates:    gates,
		pageSize: 200,
	}
}

// WarmCache evaluates every pending_review and confirmed record, returning how many were warmed
func (s *GateWarmingService) WarmCache(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)
	warmed := 0
	for _, state := range warmStates {
		for offset := 0; ; offset += s.pageSize {
			records, err := s.records.List(ctx, repositories.RecordFilter{
				State:  state,
				Limit:  s.pageSize,
				Offset: offset,
			})
			if err != nil {
				return warmed, err
			}
			for _, record := range records {
				if _, err := s.gates.CheckRecord(ctx, record); err != nil {
					logger.Warn().Err(err).Str("record_id", record.ID).Msg("gate warming failed")
					continue
				}
				warmed++
			}
			if len(records) < s.pageSize {
				break
			}
		}
	}
	logger.Debug().Int("records", warmed).Msg("gate cache warmed")
	return warmed, nil
}

// StartPeriodicWarming warms once, then every interval until ctx is done
func (s *GateWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	logger := observability.LoggerFromContext(ctx)
	if _, err := s.WarmCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial gate warming failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping gate warming")
				return
			case <-ticker.C:
				if _, err := s.WarmCache(ctx); err != nil {
					logger.Warn().Err(err).Msg("periodic gate warming failed")
				}
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started periodic gate warming")
}
