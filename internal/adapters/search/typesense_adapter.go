package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/providers"
	tsclient "github.com/adcatlas/curation-backend/internal/infrastructure/clients/typesense"
)

// Catalog document "entity" values
const (
	EntityComponent = "component"
	EntityRecord    = "record"
)

// catalogIndex is the part of the Typesense client the writer needs
type catalogIndex interface {
	UpsertDocument(ctx context.Context, document map[string]any) error
	DeleteDocument(ctx context.Context, id string) error
}

// TypesenseCatalogWriter materializes curated entities as Typesense catalog documents
type TypesenseCatalogWriter struct {
	index catalogIndex
}

// Ensure TypesenseCatalogWriter implements CatalogWriter
var _ providers.CatalogWriter = (*TypesenseCatalogWriter)(nil)

// NewTypesenseCatalogWriter creates a new catalog writer
func NewTypesenseCatalogWriter(client *tsclient.Client) *TypesenseCatalogWriter {
	return &TypesenseCatalogWriter{index: client}
}

// UpsertComponent indexes an approved staging component
func (w *TypesenseCatalogWriter) UpsertComponent(ctx context.Context, component *entities.StagingComponent) error {
	if component.Status != entities.StagingApproved {
		return fmt.Errorf("component %s is %s, only approved components are cataloged", component.ID, component.Status)
	}
	if err := w.index.UpsertDocument(ctx, componentDocument(component)); err != nil {
		return fmt.Errorf("failed to index component: %w", err)
	}
	return nil
}

// UpsertRecord indexes a final curation record
func (w *TypesenseCatalogWriter) UpsertRecord(ctx context.Context, record *entities.CurationRecord) error {
	if !record.IsFinal() {
		return fmt.Errorf("record %s is %s, only final records are cataloged", record.ID, record.LifecycleState)
	}
	if err := w.index.UpsertDocument(ctx, recordDocument(record)); err != nil {
		return fmt.Errorf("failed to index record: %w", err)
	}
	return nil
}

// Delete removes a catalog entry
func (w *TypesenseCatalogWriter) Delete(ctx context.Context, id string) error {
	if err := w.index.DeleteDocument(ctx, id); err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil
		}
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}

func componentDocument(c *entities.StagingComponent) map[string]any {
	updated := c.CreatedAt
	if c.ReviewedAt != nil {
		updated = *c.ReviewedAt
	}
	return map[string]any{
		"id":               c.ID,
		"entity":           EntityComponent,
		"kind":             string(c.Type),
		"name":             c.Name,
		"quality_grade":    string(c.QualityGrade),
		"source_connector": c.Source.Connector,
		"attributes":       buildAttributes(c.Properties),
		"updated_at":       updated.Unix(),
	}
}

func recordDocument(r *entities.CurationRecord) map[string]any {
	name := r.Fields.Get("name").String()
	if strings.TrimSpace(name) == "" {
		name = r.ID
	}
	doc := map[string]any{
		"id":             r.ID,
		"entity":         EntityRecord,
		"kind":           r.Kind,
		"name":           name,
		"attributes":     buildAttributes(r.Fields),
		"evidence_count": len(r.EvidenceRefs),
		"updated_at":     r.UpdatedAt.Unix(),
	}
	if target := strings.TrimSpace(r.Fields.Get(entities.FieldTargetSymbol).String()); target != "" {
		doc["target_symbol"] = target
	}
	return doc
}
