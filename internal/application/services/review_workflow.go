package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// AutoApprovePolicy decides whether a pending item may be approved without a reviewer
type AutoApprovePolicy interface {
	Name() string
	ShouldApprove(item *entities.ReviewChangeItem) bool
}

// ConfidenceThresholdPolicy approves field updates whose confidence reaches Threshold
type ConfidenceThresholdPolicy struct {
	Threshold float64
}

// Name implements AutoApprovePolicy
func (p ConfidenceThresholdPolicy) Name() string {
	return fmt.Sprintf("confidence>=%.2f", p.Threshold)
}

// ShouldApprove implements AutoApprovePolicy
func (p ConfidenceThresholdPolicy) ShouldApprove(item *entities.ReviewChangeItem) bool {
	return item.ChangeType == entities.ChangeFieldUpdate && item.Confidence >= p.Threshold
}

// ReviewWorkflow manages queued change proposals and their approval
type ReviewWorkflow struct {
	tx          repositories.TxManager
	reviews     repositories.ReviewRepository
	records     repositories.CurationRecordRepository
	evidence    repositories.EvidenceRepository
	diff        *DiffEngine
	policy      AutoApprovePolicy
	concurrency int
	bus         providers.EventBus
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewReviewWorkflow creates a new review workflow. A nil policy means a 0.9 confidence threshold.
func NewReviewWorkflow(
	tx repositories.TxManager,
	reviews repositories.ReviewRepository,
	records repositories.CurationRecordRepository,
	evidence repositories.EvidenceRepository,
	diff *DiffEngine,
	policy AutoApprovePolicy,
	concurrency int,
	bus providers.EventBus,
	metrics *observability.Metrics,
) *ReviewWorkflow {
	if policy == nil {
		policy = ConfidenceThresholdPolicy{Threshold: 0.9}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReviewWorkflow{
		tx:          tx,
		reviews:     reviews,
		records:     records,
		evidence:    evidence,
		diff:        diff,
		policy:      policy,
		concurrency: concurrency,
		bus:         bus,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EnqueueInput is a change proposal produced by a batch job
type EnqueueInput struct {
	RecordID   string              `json:"record_id"`
	ChangeType entities.ChangeType `json:"change_type"`
	FieldName  string              `json:"field_name"`
	NewValue   entities.Value      `json:"new_value"`
	Confidence float64             `json:"confidence"`
	SourceJob  *string             `json:"source_job,omitempty"`
}

// Enqueue stores a pending review item, capturing the field's current value as OldValue
func (w *ReviewWorkflow) Enqueue(ctx context.Context, in EnqueueInput) (*entities.ReviewChangeItem, error) {
	if in.ChangeType == "" {
		in.ChangeType = entities.ChangeFieldUpdate
	}
	if !in.ChangeType.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown change type %q", in.ChangeType))
	}
	if strings.TrimSpace(in.RecordID) == "" {
		return nil, apperrors.NewValidationError("record_id is required")
	}
	if !entities.ValidConfidence(in.Confidence) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("confidence %v outside [0,1]", in.Confidence))
	}
	switch in.ChangeType {
	case entities.ChangeFieldUpdate:
		if strings.TrimSpace(in.FieldName) == "" {
			return nil, apperrors.NewValidationError("field_name is required for field updates")
		}
	case entities.ChangeEvidenceLink:
		if s, ok := in.NewValue.AsString(); !ok || strings.TrimSpace(s) == "" {
			return nil, apperrors.NewValidationError("new_value must hold the evidence id for evidence links")
		}
		if in.FieldName == "" {
			in.FieldName = "evidence_refs"
		}
	}

	record, err := w.records.GetByID(ctx, in.RecordID)
	if err != nil {
		return nil, err
	}
	item := &entities.ReviewChangeItem{
		ID:         uuid.NewString(),
		RecordID:   in.RecordID,
		ChangeType: in.ChangeType,
		FieldName:  in.FieldName,
		NewValue:   in.NewValue,
		Confidence: in.Confidence,
		SourceJob:  in.SourceJob,
		Status:     entities.ReviewPending,
	}
	if in.ChangeType == entities.ChangeFieldUpdate {
		item.OldValue = record.Fields.Get(in.FieldName)
	}
	if err := w.reviews.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns one review item
func (w *ReviewWorkflow) Get(ctx context.Context, id string) (*entities.ReviewChangeItem, error) {
	return w.reviews.GetByID(ctx, id)
}

// List returns review items sorted by creation time. Resolved items are kept.
func (w *ReviewWorkflow) List(ctx context.Context, filter repositories.ReviewFilter) ([]*entities.ReviewChangeItem, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown review status %q", filter.Status))
	}
	return w.reviews.List(ctx, filter)
}

// Approve resolves a pending item and applies it to its record in the same
// transaction. If the apply fails (locked record, final record, lost race)
// the item stays pending.
func (w *ReviewWorkflow) Approve(ctx context.Context, itemID string, reviewer entities.Actor, comment *string) (*entities.ReviewChangeItem, error) {
	if err := reviewer.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	item, err := w.reviews.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	unlock := w.diff.locks.Lock(item.RecordID)
	defer unlock()

	var (
		resolved *entities.ReviewChangeItem
		applied  *entities.ApplyResult
	)
	err = w.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		resolved, err = w.reviews.Resolve(ctx, itemID, entities.ReviewApproved, w.resolution(reviewer, comment))
		if err != nil {
			return err
		}
		switch resolved.ChangeType {
		case entities.ChangeFieldUpdate:
			record, err := w.records.GetByID(ctx, resolved.RecordID)
			if err != nil {
				return err
			}
			items := w.diff.ComputeDiff(record, []entities.ProposedChange{{
				FieldName:  resolved.FieldName,
				Value:      resolved.NewValue,
				Confidence: resolved.Confidence,
				Source:     reviewSource(resolved),
			}})
			applied, err = w.diff.applyLocked(ctx, ApplyRequest{
				RecordID:       resolved.RecordID,
				Items:          items,
				SelectedFields: []string{resolved.FieldName},
				Actor:          reviewer,
			})
			return err
		case entities.ChangeEvidenceLink:
			if reviewer.IsAutomated() {
				record, err := w.records.GetByID(ctx, resolved.RecordID)
				if err != nil {
					return err
				}
				if record.VerifiedLock {
					return apperrors.NewLockedRecordError(fmt.Sprintf("record %s is verified-locked against automated writes", record.ID)).WithID(record.ID)
				}
			}
			evidenceID, _ := resolved.NewValue.AsString()
			_, err := attachEvidenceLocked(ctx, w.records, w.evidence, resolved.RecordID, strings.TrimSpace(evidenceID))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied != nil {
		w.diff.afterApply(ctx, reviewer, applied)
	}
	w.afterResolve(ctx, resolved, reviewer)
	return resolved, nil
}

// Reject resolves a pending item without touching the record
func (w *ReviewWorkflow) Reject(ctx context.Context, itemID string, reviewer entities.Actor, comment *string) (*entities.ReviewChangeItem, error) {
	if err := reviewer.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	resolved, err := w.reviews.Resolve(ctx, itemID, entities.ReviewRejected, w.resolution(reviewer, comment))
	if err != nil {
		return nil, err
	}
	w.afterResolve(ctx, resolved, reviewer)
	return resolved, nil
}

// AutoApprove approves the pending items matching filter that the policy accepts,
// acting as the automated actor. Per-item failures are reported; systemic errors abort.
func (w *ReviewWorkflow) AutoApprove(ctx context.Context, filter repositories.ReviewFilter) (*entities.BatchResult, error) {
	filter.Status = entities.ReviewPending
	items, err := w.reviews.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	actor := entities.AutomatedActor("auto-approve:" + w.policy.Name())
	candidates := make([]string, 0, len(items))
	skipped := 0
	for _, item := range items {
		if w.policy.ShouldApprove(item) {
			candidates = append(candidates, item.ID)
		} else {
			skipped++
		}
	}

	result, err := runBatch(ctx, candidates, w.concurrency, func(ctx context.Context, id string) error {
		_, err := w.Approve(ctx, id, actor, nil)
		return err
	})
	if result != nil {
		result.SkippedCount = skipped
	}
	return result, err
}

func (w *ReviewWorkflow) resolution(reviewer entities.Actor, comment *string) entities.Resolution {
	return entities.Resolution{
		Comment:    comment,
		ReviewedBy: reviewer.ID,
		ResolvedAt: w.now(),
	}
}

func (w *ReviewWorkflow) afterResolve(ctx context.Context, item *entities.ReviewChangeItem, reviewer entities.Actor) {
	observability.RecordReviewResolved(ctx, w.metrics, string(item.Status))
	observability.LoggerFromContext(ctx).Info().
		Str("review_id", item.ID).
		Str("record_id", item.RecordID).
		Str("status", string(item.Status)).
		Str("reviewer", reviewer.ID).
		Msg("review item resolved")
	publishEvent(ctx, w.bus, entities.NewCurationEvent(entities.EventReviewResolved, item.ID, reviewer.ID, item.FieldName))
}

func reviewSource(item *entities.ReviewChangeItem) string {
	if item.SourceJob != nil && *item.SourceJob != "" {
		return "review:" + item.ID + " job:" + *item.SourceJob
	}
	return "review:" + item.ID
}

// runBatch processes ids with bounded concurrency. The result lists ids in
// input order. Domain errors become failures; the first systemic error stops
// further items from starting and is returned with the partial result.
func runBatch(ctx context.Context, ids []string, concurrency int, fn func(ctx context.Context, id string) error) (*entities.BatchResult, error) {
	errs := make([]error, len(ids))
	done := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			err := fn(gctx, id)
			errs[i] = err
			done[i] = true
			if apperrors.IsSystemic(err) {
				return err
			}
			return nil
		})
	}
	systemic := g.Wait()

	result := &entities.BatchResult{Approved: []string{}, Failures: []entities.BatchFailure{}}
	logger := observability.LoggerFromContext(ctx)
	for i, id := range ids {
		if !done[i] {
			continue
		}
		if errs[i] == nil {
			result.Approved = append(result.Approved, id)
			continue
		}
		if apperrors.IsSystemic(errs[i]) {
			continue
		}
		logger.Warn().Err(errs[i]).Str("id", id).Msg("batch item failed")
		result.Failures = append(result.Failures, entities.BatchFailure{
			ID:        id,
			Reason:    errs[i].Error(),
			ErrorType: string(apperrors.TypeOf(errs[i])),
		})
	}
	result.ApprovedCount = len(result.Approved)
	result.FailedCount = len(result.Failures)
	if systemic != nil {
		return result, systemic
	}
	return result, nil
}
