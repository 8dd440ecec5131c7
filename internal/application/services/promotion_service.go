package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// PromotionService moves records that pass their gates to the final state
type PromotionService struct {
	tx      repositories.TxManager
	records repositories.CurationRecordRepository
	gates   *GateService
	locks   *RecordLocks
	bus     providers.EventBus
	metrics *observability.Metrics
	now     func() time.Time
}

// NewPromotionService creates a new promotion service
func NewPromotionService(
	tx repositories.TxManager,
	records repositories.CurationRecordRepository,
	gates *GateService,
	locks *RecordLocks,
	bus providers.EventBus,
	metrics *observability.Metrics,
) *PromotionService {
	if locks == nil {
		locks = NewRecordLocks()
	}
	return &PromotionService{
		tx:      tx,
		records: records,
		gates:   gates,
		locks:   locks,
		bus:     bus,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Promote re-evaluates the gates and flips the record to final. Promoting a
// final record reports already_final; failing gates yield a GateFailedError
// whose details carry the check result.
func (s *PromotionService) Promote(ctx context.Context, recordID string, actor entities.Actor) (*entities.PromotionResult, error) {
	ctx, span := observability.StartSpan(ctx, "PromotionService.Promote")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("record.id", recordID))

	if err := actor.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	unlock := s.locks.Lock(recordID)
	defer unlock()

	var result *entities.PromotionResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.records.GetByID(ctx, recordID)
		if err != nil {
			return err
		}
		if record.IsFinal() {
			result = &entities.PromotionResult{
				RecordID: record.ID,
				Status:   entities.PromotionAlreadyFinal,
				Message:  "record is already final",
				Record:   record,
			}
			return nil
		}

		gates, err := s.gates.CheckRecord(ctx, record)
		if err != nil {
			return err
		}
		if !gates.Passed {
			return apperrors.NewGateFailedError(fmt.Sprintf(
				"record %s failed required gates: %s", record.ID, strings.Join(gates.FailedChecks(), ", "))).
				WithID(record.ID).
				WithDetails(gates)
		}

		now := s.now()
		record.LifecycleState = entities.LifecycleFinal
		record.PromotedAt = &now
		if err := s.records.Update(ctx, record); err != nil {
			return err
		}
		result = &entities.PromotionResult{
			RecordID: record.ID,
			Status:   entities.PromotionPromoted,
			Message:  "record promoted to final",
			Gates:    gates,
			Record:   record,
		}
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordPromotion(ctx, s.metrics, strings.ToLower(string(apperrors.TypeOf(err))))
		return nil, err
	}

	observability.RecordPromotion(ctx, s.metrics, string(result.Status))
	if result.Status == entities.PromotionPromoted {
		observability.LoggerFromContext(ctx).Info().
			Str("record_id", recordID).
			Str("actor_id", actor.ID).
			Int64("version", result.Record.Version).
			Msg("record promoted")
		publishEvent(ctx, s.bus, entities.NewCurationEvent(entities.EventRecordPromoted, recordID, actor.ID))
	}
	return result, nil
}
