package services

import (
	"strings"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// OutcomeConsistencyFunc decides whether a record's outcome label agrees with its other fields
type OutcomeConsistencyFunc func(fields entities.Fields) bool

// GateConfig holds the thresholds of the built-in profiles
type GateConfig struct {
	EvidenceMin       int
	ManualEvidenceMin int
	MinGrade          entities.EvidenceGrade
	OutcomeConsistent OutcomeConsistencyFunc
}

// DefaultGateConfig returns the stock thresholds
func DefaultGateConfig() GateConfig {
	return GateConfig{
		EvidenceMin:       2,
		ManualEvidenceMin: 1,
		MinGrade:          entities.GradeB,
		OutcomeConsistent: DefaultOutcomeConsistency,
	}
}

var (
	positiveOutcomes = map[string]bool{"success": true, "positive": true, "met": true, "approved": true}
	negativeOutcomes = map[string]bool{"failure": true, "negative": true, "not_met": true, "failed": true}

	haltedStatuses = map[string]bool{"terminated": true, "withdrawn": true, "suspended": true}
)

// DefaultOutcomeConsistency accepts a record with no outcome label or no
// clinical status. A positive outcome contradicts a halted trial and a
// negative outcome contradicts an approved product.
func DefaultOutcomeConsistency(fields entities.Fields) bool {
	outcome := normalizeLabel(fields.Get(entities.FieldOutcomeLabel))
	status := normalizeLabel(fields.Get(entities.FieldClinicalStatus))
	if outcome == "" || status == "" {
		return true
	}
	switch {
	case positiveOutcomes[outcome]:
		return !haltedStatuses[status]
	case negativeOutcomes[outcome]:
		return status != "approved"
	}
	return true
}

func normalizeLabel(v entities.Value) string {
	s := strings.ToLower(strings.TrimSpace(v.String()))
	return strings.ReplaceAll(s, " ", "_")
}

func fieldPresent(name string) GateCheckFunc {
	return func(in GateInput) bool {
		return in.Record != nil && in.Record.Fields.Has(name)
	}
}

func evidenceAtLeast(min int) GateCheckFunc {
	return func(in GateInput) bool {
		return in.Record != nil && len(in.Record.EvidenceRefs) >= min
	}
}

// aggregateGrade is the best grade among linked evidence, falling back to the
// record's evidence_grade field when no linked item is graded.
func aggregateGrade(in GateInput) entities.EvidenceGrade {
	if best := entities.BestGrade(in.Evidence); best != "" {
		return best
	}
	if in.Record == nil {
		return ""
	}
	grade, err := entities.ParseEvidenceGrade(in.Record.Fields.Get(entities.FieldEvidenceGrade).String())
	if err != nil {
		return ""
	}
	return grade
}

// NewDefaultGateEvaluator registers the adc_seed and manual_seed profiles.
// Records of any other kind are evaluated against adc_seed.
func NewDefaultGateEvaluator(cfg GateConfig) *GateEvaluator {
	if cfg.OutcomeConsistent == nil {
		cfg.OutcomeConsistent = DefaultOutcomeConsistency
	}
	if cfg.MinGrade == "" {
		cfg.MinGrade = entities.GradeB
	}
	g := NewGateEvaluator(entities.RecordKindADCSeed)

	targetResolved := GateRule{
		Name:        "target_resolved",
		Description: "target symbol resolved",
		Required:    true,
		Check:       fieldPresent(entities.FieldTargetSymbol),
	}
	nctPresent := GateRule{
		Name:        "nct_id_present",
		Description: "clinical trial identifier recorded",
		Check:       fieldPresent(entities.FieldNCTID),
	}

	seed := []GateRule{
		{
			Name:        "axis_assigned",
			Description: "therapeutic axis assigned",
			Required:    true,
			Check:       fieldPresent(entities.FieldAxis),
		},
		targetResolved,
		{
			Name:        "construct_ready",
			Description: "payload family, linker type and conjugation method present",
			Required:    true,
			SubChecks: []SubCheck{
				{Name: entities.FieldPayloadFamily, Check: fieldPresent(entities.FieldPayloadFamily)},
				{Name: entities.FieldLinkerType, Check: fieldPresent(entities.FieldLinkerType)},
				{Name: entities.FieldConjugationMethod, Check: fieldPresent(entities.FieldConjugationMethod)},
			},
		},
		{
			Name:        "evidence_sufficient",
			Description: "enough linked evidence items",
			Required:    true,
			Check:       evidenceAtLeast(cfg.EvidenceMin),
		},
		{
			Name:        "evidence_grade_ok",
			Description: "aggregated evidence grade meets the minimum",
			Required:    true,
			Check: func(in GateInput) bool {
				return aggregateGrade(in).AtLeast(cfg.MinGrade)
			},
		},
		{
			Name:        "outcome_consistent",
			Description: "outcome label agrees with clinical status",
			Required:    true,
			Check: func(in GateInput) bool {
				return in.Record != nil && cfg.OutcomeConsistent(in.Record.Fields)
			},
		},
		nctPresent,
		{
			Name:        "physchem_computed",
			Description: "physicochemical properties computed",
			Check: func(in GateInput) bool {
				return in.Record != nil && in.Record.Fields.Get(entities.FieldPhyschemComputed).Truthy()
			},
		},
	}

	manual := []GateRule{
		targetResolved,
		{
			Name:        "smiles_ready",
			Description: "standardized payload SMILES or proxy flag",
			Required:    true,
			Check: func(in GateInput) bool {
				if in.Record == nil {
					return false
				}
				return in.Record.Fields.Has(entities.FieldPayloadSmiles) ||
					in.Record.Fields.Get(entities.FieldProxySmilesFlag).Truthy()
			},
		},
		{
			Name:        "evidence_exists",
			Description: "at least the manual minimum of linked evidence",
			Required:    true,
			Check:       evidenceAtLeast(max(cfg.ManualEvidenceMin, 1)),
		},
		nctPresent,
	}

	for _, rule := range seed {
		mustRegister(g, entities.RecordKindADCSeed, rule)
	}
	for _, rule := range manual {
		mustRegister(g, entities.RecordKindManualSeed, rule)
	}
	return g
}

func mustRegister(g *GateEvaluator, profile string, rule GateRule) {
	if err := g.Register(profile, rule); err != nil {
		panic(err)
	}
}
