package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

func completeSeed() (*entities.CurationRecord, []*entities.EvidenceItem) {
	rec := &entities.CurationRecord{
		ID:   "seed-1",
		Kind: entities.RecordKindADCSeed,
		Fields: entities.Fields{
			entities.FieldAxis:              entities.StringValue("HER2"),
			entities.FieldTargetSymbol:      entities.StringValue("ERBB2"),
			entities.FieldPayloadFamily:     entities.StringValue("topoisomerase I inhibitor"),
			entities.FieldLinkerType:        entities.StringValue("cleavable"),
			entities.FieldConjugationMethod: entities.StringValue("cysteine"),
			entities.FieldOutcomeLabel:      entities.StringValue("success"),
			entities.FieldClinicalStatus:    entities.StringValue("approved"),
		},
		EvidenceRefs: []string{"e1", "e2"},
		Version:      3,
	}
	ev := []*entities.EvidenceItem{{ID: "e1", SourceQuality: entities.GradeC}, {ID: "e2", SourceQuality: entities.GradeA}}
	return rec, ev
}

func TestGateEvaluator_ManualSeedERBB2(t *testing.T) {
	g := services.NewDefaultGateEvaluator(services.DefaultGateConfig())
	rec := &entities.CurationRecord{
		ID:   "manual-1",
		Kind: entities.RecordKindManualSeed,
		Fields: entities.Fields{
			entities.FieldTargetSymbol:    entities.StringValue("ERBB2"),
			entities.FieldPayloadSmiles:   entities.StringValue(""),
			entities.FieldProxySmilesFlag: entities.BoolValue(true),
		},
		EvidenceRefs: []string{"e1"},
	}

	res := g.Evaluate(services.GateInput{Record: rec})
	assert.Equal(t, entities.RecordKindManualSeed, res.Profile)
	assert.True(t, res.Passed)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 3, res.MaxScore)
	assert.Equal(t, map[string]bool{"target_resolved": true, "smiles_ready": true, "evidence_exists": true}, res.Checks)
	assert.Equal(t, map[string]bool{"nct_id_present": false}, res.Optional, "optional rules do not affect the score")
}

func TestGateEvaluator_DefaultProfile(t *testing.T) {
	g := services.NewDefaultGateEvaluator(services.DefaultGateConfig())
	rec, ev := completeSeed()

	res := g.Evaluate(services.GateInput{Record: rec, Evidence: ev})
	assert.True(t, res.Passed)
	assert.Equal(t, 6, res.MaxScore)
	assert.Equal(t, 6, res.Score)
	assert.Equal(t, int64(3), res.Version)
	assert.Equal(t, map[string]bool{
		entities.FieldPayloadFamily:     true,
		entities.FieldLinkerType:        true,
		entities.FieldConjugationMethod: true,
	}, res.SubChecks["construct_ready"])
	assert.Empty(t, res.FailedChecks())

	// unknown kinds fall back to the default profile
	rec.Kind = "antibody"
	assert.Equal(t, entities.RecordKindADCSeed, g.Evaluate(services.GateInput{Record: rec, Evidence: ev}).Profile)
}

func TestGateEvaluator_FailuresAndSubChecks(t *testing.T) {
	g := services.NewDefaultGateEvaluator(services.DefaultGateConfig())
	rec, ev := completeSeed()
	rec.Fields[entities.FieldLinkerType] = entities.StringValue("  ")
	rec.EvidenceRefs = rec.EvidenceRefs[:1]

	res := g.Evaluate(services.GateInput{Record: rec, Evidence: ev[:1]})
	assert.False(t, res.Passed)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, []string{"construct_ready", "evidence_sufficient", "evidence_grade_ok"}, res.FailedChecks())
	assert.False(t, res.SubChecks["construct_ready"][entities.FieldLinkerType])
	assert.True(t, res.SubChecks["construct_ready"][entities.FieldPayloadFamily], "every sub-check is evaluated")
}

func TestGateEvaluator_PassedIffAllRequired(t *testing.T) {
	g := services.NewDefaultGateEvaluator(services.DefaultGateConfig())
	base, ev := completeSeed()
	mutations := map[string]func(r *entities.CurationRecord){
		"none":           func(*entities.CurationRecord) {},
		"no axis":        func(r *entities.CurationRecord) { delete(r.Fields, entities.FieldAxis) },
		"no target":      func(r *entities.CurationRecord) { r.Fields[entities.FieldTargetSymbol] = entities.NullValue() },
		"inconsistent":   func(r *entities.CurationRecord) { r.Fields[entities.FieldClinicalStatus] = entities.StringValue("Terminated") },
		"nct present":    func(r *entities.CurationRecord) { r.Fields[entities.FieldNCTID] = entities.StringValue("NCT03248492") },
		"no evidence":    func(r *entities.CurationRecord) { r.EvidenceRefs = nil },
		"physchem on":    func(r *entities.CurationRecord) { r.Fields[entities.FieldPhyschemComputed] = entities.StringValue("yes") },
		"no conjugation": func(r *entities.CurationRecord) { delete(r.Fields, entities.FieldConjugationMethod) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			rec := base.Clone()
			mutate(rec)
			res := g.Evaluate(services.GateInput{Record: rec, Evidence: ev})

			all := true
			for _, ok := range res.Checks {
				all = all && ok
			}
			assert.Equal(t, all, res.Passed)
			assert.Equal(t, len(res.Checks), res.MaxScore)
			assert.Equal(t, res, g.Evaluate(services.GateInput{Record: rec, Evidence: ev}), "evaluation is deterministic")
		})
	}
}

func TestGateEvaluator_GradeFallsBackToField(t *testing.T) {
	g := services.NewDefaultGateEvaluator(services.DefaultGateConfig())
	rec, _ := completeSeed()

	rec.Fields[entities.FieldEvidenceGrade] = entities.StringValue("b")
	res := g.Evaluate(services.GateInput{Record: rec})
	assert.True(t, res.Checks["evidence_grade_ok"])

	rec.Fields[entities.FieldEvidenceGrade] = entities.StringValue("C")
	res = g.Evaluate(services.GateInput{Record: rec})
	assert.False(t, res.Checks["evidence_grade_ok"])
}

func TestGateEvaluator_Registration(t *testing.T) {
	g := services.NewGateEvaluator("custom")
	always := func(services.GateInput) bool { return true }

	require.NoError(t, g.Register("custom", services.GateRule{Name: "a", Required: true, Check: always}))
	assert.Error(t, g.Register("custom", services.GateRule{Name: "a", Check: always}), "duplicate names are rejected")
	assert.Error(t, g.Register("custom", services.GateRule{Name: "b"}), "a rule needs a check")
	require.NoError(t, g.Register("other", services.GateRule{Name: "a", Check: always}))
	assert.Equal(t, []string{"custom", "other"}, g.Profiles())
}

func TestGateEvaluator_PluggableOutcomeConsistency(t *testing.T) {
	cfg := services.DefaultGateConfig()
	cfg.OutcomeConsistent = func(entities.Fields) bool { return false }
	g := services.NewDefaultGateEvaluator(cfg)
	rec, ev := completeSeed()

	res := g.Evaluate(services.GateInput{Record: rec, Evidence: ev})
	assert.False(t, res.Checks["outcome_consistent"])
	assert.False(t, res.Passed)
}

func TestDefaultOutcomeConsistency(t *testing.T) {
	tests := []struct {
		outcome, status string
		want            bool
	}{
		{"", "terminated", true},
		{"success", "", true},
		{"success", "Approved", true},
		{"Success", "terminated", false},
		{"positive", "Withdrawn", false},
		{"failure", "approved", false},
		{"failure", "terminated", true},
		{"mixed", "approved", true},
	}
	for _, tt := range tests {
		fields := entities.Fields{
			entities.FieldOutcomeLabel:   entities.StringValue(tt.outcome),
			entities.FieldClinicalStatus: entities.StringValue(tt.status),
		}
		assert.Equal(t, tt.want, services.DefaultOutcomeConsistency(fields), "%q / %q", tt.outcome, tt.status)
	}
}
