package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// DiffEngine renders proposed changes against a record and applies reviewer selections
type DiffEngine struct {
	tx      repositories.TxManager
	records repositories.CurationRecordRepository
	ledger  *ProvenanceLedger
	locks   *RecordLocks
	bus     providers.EventBus
	metrics *observability.Metrics
}

// NewDiffEngine creates a new diff engine. bus and metrics may be nil.
func NewDiffEngine(
	tx repositories.TxManager,
	records repositories.CurationRecordRepository,
	ledger *ProvenanceLedger,
	locks *RecordLocks,
	bus providers.EventBus,
	metrics *observability.Metrics,
) *DiffEngine {
	if locks == nil {
		locks = NewRecordLocks()
	}
	return &DiffEngine{
		tx:      tx,
		records: records,
		ledger:  ledger,
		locks:   locks,
		bus:     bus,
		metrics: metrics,
	}
}

// ApplyRequest selects which diff items to write to a record
type ApplyRequest struct {
	RecordID       string
	Items          []entities.DiffItem
	SelectedFields []string
	Actor          entities.Actor
}

// ComputeDiff renders proposed against the record's current values, in proposed order
func (e *DiffEngine) ComputeDiff(record *entities.CurationRecord, proposed []entities.ProposedChange) []entities.DiffItem {
	var current entities.Fields
	if record != nil {
		current = record.Fields
	}
	items := make([]entities.DiffItem, 0, len(proposed))
	for _, p := range proposed {
		old := current.Get(p.FieldName)
		items = append(items, entities.DiffItem{
			FieldName:  p.FieldName,
			OldValue:   old,
			NewValue:   p.Value,
			Confidence: p.Confidence,
			Source:     p.Source,
			Changed:    !old.Equal(p.Value),
		})
	}
	return items
}

// ApplySelected writes the selected changed items to the record together with
// one provenance row per field, all in one transaction with a version bump.
func (e *DiffEngine) ApplySelected(ctx context.Context, req ApplyRequest) (*entities.ApplyResult, error) {
	ctx, span := observability.StartSpan(ctx, "DiffEngine.ApplySelected")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("record.id", req.RecordID),
		attribute.String("actor.kind", string(req.Actor.Kind)),
	)

	if err := req.Actor.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	unlock := e.locks.Lock(req.RecordID)
	defer unlock()

	var result *entities.ApplyResult
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.applyLocked(ctx, req)
		return err
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	e.afterApply(ctx, req.Actor, result)
	return result, nil
}

// applyLocked does the work of ApplySelected. Callers hold the record lock and
// pass a transactional ctx.
func (e *DiffEngine) applyLocked(ctx context.Context, req ApplyRequest) (*entities.ApplyResult, error) {
	record, err := e.records.GetByID(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}
	if record.IsFinal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("record %s is final and cannot be modified", record.ID)).WithID(record.ID)
	}
	if record.VerifiedLock && req.Actor.IsAutomated() {
		return nil, apperrors.NewLockedRecordError(fmt.Sprintf("record %s is verified-locked against automated writes", record.ID)).WithID(record.ID)
	}

	selected := make(map[string]struct{}, len(req.SelectedFields))
	for _, name := range req.SelectedFields {
		selected[strings.TrimSpace(name)] = struct{}{}
	}

	result := &entities.ApplyResult{RecordID: record.ID, AppliedFields: []string{}, Version: record.Version}
	var applied []entities.DiffItem
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := selected[item.FieldName]; !ok {
			continue
		}
		if _, dup := seen[item.FieldName]; dup {
			continue
		}
		seen[item.FieldName] = struct{}{}
		if !item.Changed || record.Fields.Get(item.FieldName).Equal(item.NewValue) {
			continue
		}
		if !entities.ValidConfidence(item.Confidence) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("confidence %v outside [0,1] for field %s", item.Confidence, item.FieldName))
		}
		applied = append(applied, item)
	}
	if len(applied) == 0 {
		return result, nil
	}

	if record.Fields == nil {
		record.Fields = entities.Fields{}
	}
	for _, item := range applied {
		record.Fields[item.FieldName] = item.NewValue
	}
	if err := e.records.Update(ctx, record); err != nil {
		return nil, err
	}
	for _, item := range applied {
		if _, err := e.ledger.LinkField(ctx, LinkFieldInput{
			RecordID:   record.ID,
			FieldName:  item.FieldName,
			Value:      item.NewValue,
			Confidence: item.Confidence,
			QuoteSpan:  item.Source,
		}); err != nil {
			return nil, err
		}
		result.AppliedFields = append(result.AppliedFields, item.FieldName)
	}
	result.AppliedCount = len(applied)
	result.Version = record.Version
	return result, nil
}

func (e *DiffEngine) afterApply(ctx context.Context, actor entities.Actor, result *entities.ApplyResult) {
	if result.AppliedCount == 0 {
		return
	}
	observability.RecordAppliedFields(ctx, e.metrics, string(actor.Kind), result.AppliedCount)
	observability.LoggerFromContext(ctx).Info().
		Str("record_id", result.RecordID).
		Str("actor_kind", string(actor.Kind)).
		Str("actor_id", actor.ID).
		Strs("fields", result.AppliedFields).
		Int64("version", result.Version).
		Msg("applied diff")
	publishEvent(ctx, e.bus, entities.NewCurationEvent(entities.EventRecordUpdated, result.RecordID, actor.ID, result.AppliedFields...))
}
