package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// StagingPipeline moves harvested components from pending to approved or rejected.
// Approved components are copied into the catalog by CatalogSyncService.
type StagingPipeline struct {
	tx          repositories.TxManager
	staging     repositories.StagingRepository
	concurrency int
	bus         providers.EventBus
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewStagingPipeline creates a new staging pipeline
func NewStagingPipeline(
	tx repositories.TxManager,
	staging repositories.StagingRepository,
	concurrency int,
	bus providers.EventBus,
	metrics *observability.Metrics,
) *StagingPipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &StagingPipeline{
		tx:          tx,
		staging:     staging,
		concurrency: concurrency,
		bus:         bus,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StagingInput is a component harvested by a connector
type StagingInput struct {
	Type         entities.ComponentType   `json:"type"`
	Name         string                   `json:"name"`
	Properties   entities.Fields          `json:"properties"`
	QualityGrade entities.QualityGrade    `json:"quality_grade"`
	Source       entities.ComponentSource `json:"source"`
}

// Create validates and stores a pending component
func (p *StagingPipeline) Create(ctx context.Context, in StagingInput) (*entities.StagingComponent, error) {
	if !in.Type.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown component type %q", in.Type))
	}
	if !in.QualityGrade.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown quality grade %q", in.QualityGrade))
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if strings.TrimSpace(in.Source.Connector) == "" || strings.TrimSpace(in.Source.ExternalID) == "" {
		return nil, apperrors.NewValidationError("source connector and external_id are required")
	}

	component := &entities.StagingComponent{
		ID:           uuid.NewString(),
		Type:         in.Type,
		Name:         strings.TrimSpace(in.Name),
		Properties:   in.Properties.Clone(),
		QualityGrade: in.QualityGrade,
		Source:       in.Source,
		Status:       entities.StagingPending,
	}
	if component.Source.FetchedAt.IsZero() {
		component.Source.FetchedAt = p.now()
	}
	if err := p.staging.Create(ctx, component); err != nil {
		return nil, err
	}
	return component, nil
}

// Get returns one component
func (p *StagingPipeline) Get(ctx context.Context, id string) (*entities.StagingComponent, error) {
	return p.staging.GetByID(ctx, id)
}

// List returns components matching filter, oldest first
func (p *StagingPipeline) List(ctx context.Context, filter repositories.StagingFilter) ([]*entities.StagingComponent, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown staging status %q", filter.Status))
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown component type %q", filter.Type))
	}
	return p.staging.List(ctx, filter)
}

// Approve moves a pending component to approved
func (p *StagingPipeline) Approve(ctx context.Context, id string, reviewer entities.Actor) (*entities.StagingComponent, error) {
	return p.resolve(ctx, id, entities.StagingApproved, reviewer, nil)
}

// Reject moves a pending component to rejected
func (p *StagingPipeline) Reject(ctx context.Context, id string, reviewer entities.Actor, note *string) (*entities.StagingComponent, error) {
	return p.resolve(ctx, id, entities.StagingRejected, reviewer, note)
}

// BulkApprove approves each id in its own transaction. The result follows
// input order and is a report, not a rollback unit. A systemic error stops
// the remaining ids and is returned alongside the partial result.
func (p *StagingPipeline) BulkApprove(ctx context.Context, ids []string, reviewer entities.Actor) (*entities.BatchResult, error) {
	if err := reviewer.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	result, err := runBatch(ctx, ids, p.concurrency, func(ctx context.Context, id string) error {
		_, err := p.Approve(ctx, id, reviewer)
		return err
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Int("approved", result.ApprovedCount).
			Msg("bulk approve aborted")
		return result, err
	}
	observability.LoggerFromContext(ctx).Info().
		Int("approved", result.ApprovedCount).
		Int("failed", result.FailedCount).
		Msg("bulk approve finished")
	return result, nil
}

func (p *StagingPipeline) resolve(ctx context.Context, id string, status entities.StagingStatus, reviewer entities.Actor, note *string) (*entities.StagingComponent, error) {
	if err := reviewer.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	var component *entities.StagingComponent
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		component, err = p.staging.Resolve(ctx, id, status, entities.Resolution{
			Comment:    note,
			ReviewedBy: reviewer.ID,
			ResolvedAt: p.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordStagingResolved(ctx, p.metrics, string(status))
	observability.LoggerFromContext(ctx).Info().
		Str("component_id", id).
		Str("status", string(status)).
		Str("reviewer", reviewer.ID).
		Msg("staging component resolved")

	eventType := entities.EventStagingApproved
	if status == entities.StagingRejected {
		eventType = entities.EventStagingRejected
	}
	publishEvent(ctx, p.bus, entities.NewCurationEvent(eventType, id, reviewer.ID))
	return component, nil
}
