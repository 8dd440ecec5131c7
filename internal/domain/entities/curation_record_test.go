package entities

import (
	"math"
	"testing"
	"time"
)

func TestLifecycleState_CanTransition(t *testing.T) {
	allowed := map[[2]LifecycleState]bool{
		{LifecycleDraft, LifecyclePendingReview}:     true,
		{LifecyclePendingReview, LifecycleDraft}:     true,
		{LifecyclePendingReview, LifecycleConfirmed}: true,
		{LifecycleConfirmed, LifecyclePendingReview}: true,
	}
	states := []LifecycleState{LifecycleDraft, LifecyclePendingReview, LifecycleConfirmed, LifecycleFinal}
	for _, from := range states {
		for _, to := range states {
			want := allowed[[2]LifecycleState{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCurationRecord_Clone(t *testing.T) {
	now := time.Now()
	rec := &CurationRecord{
		ID:           "r1",
		Fields:       Fields{FieldAxis: StringValue("HER2")},
		EvidenceRefs: []string{"e1"},
		PromotedAt:   &now,
	}
	c := rec.Clone()
	c.Fields[FieldAxis] = StringValue("TROP2")
	c.EvidenceRefs[0] = "e2"
	*c.PromotedAt = now.Add(time.Hour)

	if s, _ := rec.Fields.Get(FieldAxis).AsString(); s != "HER2" {
		t.Errorf("fields shared with clone")
	}
	if rec.EvidenceRefs[0] != "e1" {
		t.Errorf("evidence refs shared with clone")
	}
	if !rec.PromotedAt.Equal(now) {
		t.Errorf("promoted_at shared with clone")
	}
}

func TestFieldProvenance_NewerThan(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := &FieldProvenance{ID: 1, CreatedAt: ts}
	b := &FieldProvenance{ID: 2, CreatedAt: ts}
	c := &FieldProvenance{ID: 0, CreatedAt: ts.Add(time.Second)}

	if !b.NewerThan(a) || a.NewerThan(b) {
		t.Errorf("tie on created_at should go to the higher id")
	}
	if !c.NewerThan(b) {
		t.Errorf("later created_at should win regardless of id")
	}
	if !a.NewerThan(nil) {
		t.Errorf("any row is newer than nothing")
	}
}

func TestValidConfidence(t *testing.T) {
	for _, c := range []float64{0, 0.5, 1} {
		if !ValidConfidence(c) {
			t.Errorf("expected %v to be valid", c)
		}
	}
	for _, c := range []float64{-0.01, 1.01, math.NaN()} {
		if ValidConfidence(c) {
			t.Errorf("expected %v to be invalid", c)
		}
	}
}

func TestValidateProposed(t *testing.T) {
	ok := []ProposedChange{{FieldName: "a", Confidence: 0.4}, {FieldName: "b", Confidence: 1}}
	if err := ValidateProposed(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := [][]ProposedChange{
		{{FieldName: "", Confidence: 0.5}},
		{{FieldName: "a", Confidence: 1.5}},
		{{FieldName: "a", Confidence: 0.5}, {FieldName: "a", Confidence: 0.7}},
	}
	for i, p := range bad {
		if err := ValidateProposed(p); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestEvidenceItem_Validate(t *testing.T) {
	item := &EvidenceItem{Type: EvidencePaper, Title: "Phase 2 readout", SourceQuality: "b"}
	if err := item.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.SourceQuality != GradeB {
		t.Errorf("expected grade normalised to B, got %q", item.SourceQuality)
	}

	for _, bad := range []*EvidenceItem{
		{Type: "blog", Title: "x"},
		{Type: EvidencePaper},
		{Type: EvidencePaper, Title: "x", SourceQuality: "E"},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestBestGrade(t *testing.T) {
	items := []*EvidenceItem{{SourceQuality: GradeC}, nil, {SourceQuality: GradeA}, {}}
	if got := BestGrade(items); got != GradeA {
		t.Errorf("expected A, got %q", got)
	}
	if got := BestGrade(nil); got != "" {
		t.Errorf("expected ungraded, got %q", got)
	}
	if !GradeA.AtLeast(GradeB) || GradeC.AtLeast(GradeB) || EvidenceGrade("").AtLeast(GradeD) {
		t.Errorf("AtLeast ordering is wrong")
	}
}

func TestActor_Validate(t *testing.T) {
	if err := HumanActor("alice").Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Actor{}).Validate(); err == nil {
		t.Errorf("expected missing kind to be rejected")
	}
	if err := (Actor{Kind: "robot"}).Validate(); err == nil {
		t.Errorf("expected unknown kind to be rejected")
	}
}
