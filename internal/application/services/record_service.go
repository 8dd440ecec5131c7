package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// RecordService handles record ingestion and the manual lifecycle below final
type RecordService struct {
	tx       repositories.TxManager
	records  repositories.CurationRecordRepository
	evidence repositories.EvidenceRepository
	locks    *RecordLocks
	bus      providers.EventBus
}

// NewRecordService creates a new record service
func NewRecordService(
	tx repositories.TxManager,
	records repositories.CurationRecordRepository,
	evidence repositories.EvidenceRepository,
	locks *RecordLocks,
	bus providers.EventBus,
) *RecordService {
	if locks == nil {
		locks = NewRecordLocks()
	}
	return &RecordService{
		tx:       tx,
		records:  records,
		evidence: evidence,
		locks:    locks,
		bus:      bus,
	}
}

// CreateRecordInput is the ingestion payload for a new record
type CreateRecordInput struct {
	ID           string          `json:"id,omitempty"`
	Kind         string          `json:"kind"`
	Fields       entities.Fields `json:"fields"`
	EvidenceRefs []string        `json:"evidence_refs,omitempty"`
}

// Create stores a draft record. Evidence refs must point at existing items.
func (s *RecordService) Create(ctx context.Context, in CreateRecordInput) (*entities.CurationRecord, error) {
	kind := strings.TrimSpace(in.Kind)
	if kind == "" {
		return nil, apperrors.NewValidationError("kind is required")
	}
	record := &entities.CurationRecord{
		ID:             strings.TrimSpace(in.ID),
		Kind:           kind,
		Fields:         in.Fields.Clone(),
		LifecycleState: entities.LifecycleDraft,
		EvidenceRefs:   []string{},
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, ref := range in.EvidenceRefs {
			if record.HasEvidence(ref) {
				continue
			}
			if _, err := s.evidence.GetByID(ctx, ref); err != nil {
				return err
			}
			record.EvidenceRefs = append(record.EvidenceRefs, ref)
		}
		return s.records.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info().Str("record_id", record.ID).Str("kind", record.Kind).Msg("record created")
	return record, nil
}

// Get returns one record
func (s *RecordService) Get(ctx context.Context, id string) (*entities.CurationRecord, error) {
	return s.records.GetByID(ctx, id)
}

// List returns records matching filter
func (s *RecordService) List(ctx context.Context, filter repositories.RecordFilter) ([]*entities.CurationRecord, error) {
	if filter.State != "" && !filter.State.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown lifecycle state %q", filter.State))
	}
	return s.records.List(ctx, filter)
}

// Transition moves a record along the manual lifecycle. final is reachable
// only through promotion. A non-nil expectedVersion must match the stored version.
func (s *RecordService) Transition(ctx context.Context, id string, to entities.LifecycleState, expectedVersion *int64) (*entities.CurationRecord, error) {
	if !to.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown lifecycle state %q", to))
	}
	if to == entities.LifecycleFinal {
		return nil, apperrors.NewValidationError("records reach final only through promotion")
	}

	return s.mutate(ctx, id, expectedVersion, func(record *entities.CurationRecord) error {
		if record.IsFinal() {
			return apperrors.NewConflictError(fmt.Sprintf("record %s is final", id)).WithID(id)
		}
		if !record.LifecycleState.CanTransition(to) {
			return apperrors.NewValidationError(fmt.Sprintf("cannot move record from %s to %s", record.LifecycleState, to)).WithID(id)
		}
		record.LifecycleState = to
		return nil
	})
}

// SetVerifiedLock sets or clears the verified lock. It is the one write allowed on final records.
func (s *RecordService) SetVerifiedLock(ctx context.Context, id string, locked bool) (*entities.CurationRecord, error) {
	return s.mutate(ctx, id, nil, func(record *entities.CurationRecord) error {
		if record.VerifiedLock == locked {
			return errUnchanged
		}
		record.VerifiedLock = locked
		return nil
	})
}

// AttachEvidence links an existing evidence item to a record. Attaching twice is a no-op.
func (s *RecordService) AttachEvidence(ctx context.Context, id, evidenceID string) (*entities.CurationRecord, error) {
	if strings.TrimSpace(evidenceID) == "" {
		return nil, apperrors.NewValidationError("evidence_id is required")
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	var out *entities.CurationRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = attachEvidenceLocked(ctx, s.records, s.evidence, id, evidenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.bus, entities.NewCurationEvent(entities.EventRecordUpdated, id, "", "evidence_refs"))
	return out, nil
}

// attachEvidenceLocked appends evidenceID to the record's refs inside the caller's transaction
func attachEvidenceLocked(
	ctx context.Context,
	records repositories.CurationRecordRepository,
	evidence repositories.EvidenceRepository,
	recordID, evidenceID string,
) (*entities.CurationRecord, error) {
	record, err := records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.IsFinal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("record %s is final", recordID)).WithID(recordID)
	}
	if _, err := evidence.GetByID(ctx, evidenceID); err != nil {
		return nil, err
	}
	if record.HasEvidence(evidenceID) {
		return record, nil
	}
	record.EvidenceRefs = append(record.EvidenceRefs, evidenceID)
	if err := records.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// errUnchanged lets a mutation report that nothing needs writing
var errUnchanged = errors.New("unchanged")

func (s *RecordService) mutate(ctx context.Context, id string, expectedVersion *int64, fn func(*entities.CurationRecord) error) (*entities.CurationRecord, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var out *entities.CurationRecord
	changed := true
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.records.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != record.Version {
			return apperrors.NewConflictError(fmt.Sprintf(
				"record %s is at version %d, expected %d", id, record.Version, *expectedVersion)).WithID(id)
		}
		out = record
		if err := fn(record); err != nil {
			if errors.Is(err, errUnchanged) {
				changed = false
				return nil
			}
			return err
		}
		return s.records.Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		observability.LoggerFromContext(ctx).Info().
			Str("record_id", id).
			Str("state", string(out.LifecycleState)).
			Bool("verified_lock", out.VerifiedLock).
			Int64("version", out.Version).
			Msg("record updated")
		publishEvent(ctx, s.bus, entities.NewCurationEvent(entities.EventRecordUpdated, id, ""))
	}
	return out, nil
}
