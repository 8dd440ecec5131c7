package entities

import (
	"fmt"
	"strings"
	"time"
)

// EvidenceType classifies a piece of supporting documentation
type EvidenceType string

const (
	EvidenceClinicalTrial EvidenceType = "clinical_trial"
	EvidencePaper         EvidenceType = "paper"
	EvidencePatent        EvidenceType = "patent"
	EvidenceLabel         EvidenceType = "label"
	EvidencePress         EvidenceType = "press"
	EvidenceOther         EvidenceType = "other"
)

// IsValid reports whether t is a known evidence type
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceClinicalTrial, EvidencePaper, EvidencePatent, EvidenceLabel, EvidencePress, EvidenceOther:
		return true
	}
	return false
}

// EvidenceGrade is a source quality grade, A best
type EvidenceGrade string

const (
	GradeA EvidenceGrade = "A"
	GradeB EvidenceGrade = "B"
	GradeC EvidenceGrade = "C"
	GradeD EvidenceGrade = "D"
)

// ParseEvidenceGrade normalises a grade string; blank means ungraded
func ParseEvidenceGrade(s string) (EvidenceGrade, error) {
	g := EvidenceGrade(strings.ToUpper(strings.TrimSpace(s)))
	if g == "" || g.Rank() > 0 {
		return g, nil
	}
	return "", fmt.Errorf("unknown evidence grade %q", s)
}

// Rank orders grades: A=4 ... D=1, ungraded or unknown=0
func (g EvidenceGrade) Rank() int {
	switch g {
	case GradeA:
		return 4
	case GradeB:
		return 3
	case GradeC:
		return 2
	case GradeD:
		return 1
	}
	return 0
}

// AtLeast reports whether g meets the minimum grade
func (g EvidenceGrade) AtLeast(min EvidenceGrade) bool {
	return g.Rank() > 0 && g.Rank() >= min.Rank()
}

// EvidenceItem is one piece of supporting documentation. Items are append-only.
type EvidenceItem struct {
	ID            string        `json:"id" db:"id"`
	Type          EvidenceType  `json:"type" db:"type"`
	Locator       string        `json:"locator" db:"locator"`
	Title         string        `json:"title" db:"title"`
	PublishedDate *time.Time    `json:"published_date,omitempty" db:"published_date"`
	Snippet       string        `json:"snippet,omitempty" db:"snippet"`
	SourceQuality EvidenceGrade `json:"source_quality,omitempty" db:"source_quality"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// Validate checks the invariants enforced at the ledger boundary
func (e *EvidenceItem) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("unknown evidence type %q", e.Type)
	}
	if strings.TrimSpace(e.Locator) == "" && strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("evidence needs a locator or a title")
	}
	grade, err := ParseEvidenceGrade(string(e.SourceQuality))
	if err != nil {
		return err
	}
	e.SourceQuality = grade
	return nil
}

// BestGrade returns the highest source quality among items, "" when none is graded
func BestGrade(items []*EvidenceItem) EvidenceGrade {
	var best EvidenceGrade
	for _, it := range items {
		if it != nil && it.SourceQuality.Rank() > best.Rank() {
			best = it.SourceQuality
		}
	}
	return best
}
