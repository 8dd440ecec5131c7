package entities

import (
	"slices"
	"time"
)

// LifecycleState is the curation state of a record
type LifecycleState string

const (
	LifecycleDraft         LifecycleState = "draft"
	LifecyclePendingReview LifecycleState = "pending_review"
	LifecycleConfirmed     LifecycleState = "confirmed"
	LifecycleFinal         LifecycleState = "final"
)

// Record kinds select the gate profile a record is evaluated against
const (
	RecordKindADCSeed    = "adc_seed"
	RecordKindManualSeed = "manual_seed"
	RecordKindComponent  = "component"
)

// Well-known field names read by the gate rules
const (
	FieldAxis              = "axis"
	FieldTargetSymbol      = "resolved_target_symbol"
	FieldPayloadFamily     = "payload_family"
	FieldLinkerType        = "linker_type"
	FieldLinkerFamily      = "linker_family"
	FieldConjugationMethod = "conjugation_method"
	FieldEvidenceGrade     = "evidence_grade"
	FieldOutcomeLabel      = "outcome_label"
	FieldClinicalStatus    = "clinical_status"
	FieldPayloadSmiles     = "payload_smiles_standardized"
	FieldProxySmilesFlag   = "proxy_smiles_flag"
	FieldNCTID             = "nct_id"
	FieldPhyschemComputed  = "physchem_computed"
)

// IsValid reports whether s is a known lifecycle state
func (s LifecycleState) IsValid() bool {
	switch s {
	case LifecycleDraft, LifecyclePendingReview, LifecycleConfirmed, LifecycleFinal:
		return true
	}
	return false
}

// lifecycleTransitions lists the manual transitions; final is only reached through promotion
var lifecycleTransitions = map[LifecycleState][]LifecycleState{
	LifecycleDraft:         {LifecyclePendingReview},
	LifecyclePendingReview: {LifecycleDraft, LifecycleConfirmed},
	LifecycleConfirmed:     {LifecyclePendingReview},
}

// CanTransition reports whether a manual transition from s to to is allowed
func (s LifecycleState) CanTransition(to LifecycleState) bool {
	return slices.Contains(lifecycleTransitions[s], to)
}

// CurationRecord is one entity under curation (a golden seed, a component, ...)
type CurationRecord struct {
	ID             string         `json:"id" db:"id"`
	Kind           string         `json:"kind" db:"kind"`
	Fields         Fields         `json:"fields" db:"fields"`
	LifecycleState LifecycleState `json:"lifecycle_state" db:"lifecycle_state"`
	VerifiedLock   bool           `json:"verified_lock" db:"verified_lock"`
	EvidenceRefs   []string       `json:"evidence_refs" db:"evidence_refs"`
	Version        int64          `json:"version" db:"version"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
	PromotedAt     *time.Time     `json:"promoted_at,omitempty" db:"promoted_at"`
}

// IsFinal reports whether the record reached the immutable catalog state
func (r *CurationRecord) IsFinal() bool {
	return r.LifecycleState == LifecycleFinal
}

// HasEvidence reports whether id is already among the record's evidence refs
func (r *CurationRecord) HasEvidence(id string) bool {
	return slices.Contains(r.EvidenceRefs, id)
}

// Clone returns a deep copy safe to mutate
func (r *CurationRecord) Clone() *CurationRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = r.Fields.Clone()
	c.EvidenceRefs = slices.Clone(r.EvidenceRefs)
	if r.PromotedAt != nil {
		t := *r.PromotedAt
		c.PromotedAt = &t
	}
	return &c
}
