package entities

import "time"

// ComponentType is the kind of drug-conjugate component harvested by a connector
type ComponentType string

const (
	ComponentTarget      ComponentType = "target"
	ComponentAntibody    ComponentType = "antibody"
	ComponentLinker      ComponentType = "linker"
	ComponentPayload     ComponentType = "payload"
	ComponentConjugation ComponentType = "conjugation"
)

// IsValid reports whether t is a known component type
func (t ComponentType) IsValid() bool {
	switch t {
	case ComponentTarget, ComponentAntibody, ComponentLinker, ComponentPayload, ComponentConjugation:
		return true
	}
	return false
}

// QualityGrade is the connector-assigned quality of a harvested component
type QualityGrade string

const (
	QualityGold   QualityGrade = "gold"
	QualitySilver QualityGrade = "silver"
	QualityBronze QualityGrade = "bronze"
)

// IsValid reports whether g is a known quality grade
func (g QualityGrade) IsValid() bool {
	return g == QualityGold || g == QualitySilver || g == QualityBronze
}

// StagingStatus is the ingestion-scoped lifecycle of a staging component
type StagingStatus string

const (
	StagingPending  StagingStatus = "pending"
	StagingApproved StagingStatus = "approved"
	StagingRejected StagingStatus = "rejected"
)

// IsValid reports whether s is a known staging status
func (s StagingStatus) IsValid() bool {
	return s == StagingPending || s == StagingApproved || s == StagingRejected
}

// ComponentSource records where a staging component was harvested from
type ComponentSource struct {
	Connector  string    `json:"connector" db:"source_connector"`
	ExternalID string    `json:"external_id" db:"source_external_id"`
	FetchedAt  time.Time `json:"fetched_at" db:"source_fetched_at"`
}

// StagingComponent is a freshly harvested candidate not yet in the canonical catalog
type StagingComponent struct {
	ID           string          `json:"id" db:"id"`
	Type         ComponentType   `json:"type" db:"type"`
	Name         string          `json:"name" db:"name"`
	Properties   Fields          `json:"properties" db:"properties"`
	QualityGrade QualityGrade    `json:"quality_grade" db:"quality_grade"`
	Source       ComponentSource `json:"source"`
	Status       StagingStatus   `json:"status" db:"status"`
	ReviewNote   *string         `json:"review_note,omitempty" db:"review_note"`
	ReviewedBy   *string         `json:"reviewed_by,omitempty" db:"reviewed_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
}
