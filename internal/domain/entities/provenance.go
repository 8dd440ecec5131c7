package entities

import "time"

// FieldProvenance binds a field value to the evidence and confidence that justified it.
// Rows are never updated; the latest by CreatedAt (then ID) is authoritative.
type FieldProvenance struct {
	ID             int64     `json:"id" db:"id"`
	RecordID       string    `json:"record_id" db:"record_id"`
	FieldName      string    `json:"field_name" db:"field_name"`
	FieldValue     Value     `json:"field_value" db:"field_value"`
	EvidenceItemID *string   `json:"evidence_item_id,omitempty" db:"evidence_item_id"`
	Confidence     float64   `json:"confidence" db:"confidence"`
	QuoteSpan      string    `json:"quote_span,omitempty" db:"quote_span"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewerThan reports whether p supersedes o for display
func (p *FieldProvenance) NewerThan(o *FieldProvenance) bool {
	if o == nil {
		return true
	}
	if p.CreatedAt.Equal(o.CreatedAt) {
		return p.ID > o.ID
	}
	return p.CreatedAt.After(o.CreatedAt)
}

// ValidConfidence reports whether c lies in [0,1]
func ValidConfidence(c float64) bool {
	return c >= 0 && c <= 1
}
