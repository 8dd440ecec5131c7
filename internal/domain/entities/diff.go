package entities

import (
	"fmt"
	"strings"
)

// ActorKind distinguishes reviewer-initiated writes from automation
type ActorKind string

const (
	ActorHuman     ActorKind = "human"
	ActorAutomated ActorKind = "automated"
)

// Actor identifies who performs a write. Verified locks only stop automated actors.
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// HumanActor builds a reviewer actor
func HumanActor(id string) Actor { return Actor{Kind: ActorHuman, ID: id} }

// AutomatedActor builds an automation actor (enrichment job, auto-approve policy, ...)
func AutomatedActor(id string) Actor { return Actor{Kind: ActorAutomated, ID: id} }

// Validate requires an explicit actor kind
func (a Actor) Validate() error {
	switch a.Kind {
	case ActorHuman, ActorAutomated:
		return nil
	case "":
		return fmt.Errorf("actor kind is required (human or automated)")
	default:
		return fmt.Errorf("unknown actor kind %q", a.Kind)
	}
}

// IsAutomated reports whether the actor is automation
func (a Actor) IsAutomated() bool { return a.Kind == ActorAutomated }

// ProposedChange is one candidate value produced by an enrichment job
type ProposedChange struct {
	FieldName  string  `json:"field_name"`
	Value      Value   `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// ValidateProposed checks field names, confidences and duplicates
func ValidateProposed(proposed []ProposedChange) error {
	seen := make(map[string]struct{}, len(proposed))
	for i, p := range proposed {
		name := strings.TrimSpace(p.FieldName)
		if name == "" {
			return fmt.Errorf("proposed[%d]: field_name is required", i)
		}
		if !ValidConfidence(p.Confidence) {
			return fmt.Errorf("proposed[%d]: confidence %v outside [0,1]", i, p.Confidence)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("proposed[%d]: duplicate field %q", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// DiffItem is one proposed change rendered against a record
type DiffItem struct {
	FieldName  string  `json:"field_name"`
	OldValue   Value   `json:"old_value"`
	NewValue   Value   `json:"new_value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
	Changed    bool    `json:"changed"`
}

// ApplyResult reports what an apply call committed
type ApplyResult struct {
	RecordID      string   `json:"record_id"`
	AppliedCount  int      `json:"applied_count"`
	AppliedFields []string `json:"applied_fields"`
	Version       int64    `json:"version"`
}
