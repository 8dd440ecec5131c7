package entities

import "time"

// ReviewStatus is the state of a queued change proposal
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// IsValid reports whether s is a known review status
func (s ReviewStatus) IsValid() bool {
	return s == ReviewPending || s == ReviewApproved || s == ReviewRejected
}

// ChangeType says what approving a review item does to the record
type ChangeType string

const (
	// ChangeFieldUpdate sets FieldName to NewValue
	ChangeFieldUpdate ChangeType = "field_update"
	// ChangeEvidenceLink attaches the evidence id held in NewValue
	ChangeEvidenceLink ChangeType = "evidence_link"
)

// IsValid reports whether t is a known change type
func (t ChangeType) IsValid() bool {
	return t == ChangeFieldUpdate || t == ChangeEvidenceLink
}

// ReviewChangeItem is a durable change proposal awaiting human approval
type ReviewChangeItem struct {
	ID            string       `json:"id" db:"id"`
	RecordID      string       `json:"record_id" db:"record_id"`
	ChangeType    ChangeType   `json:"change_type" db:"change_type"`
	FieldName     string       `json:"field_name" db:"field_name"`
	OldValue      Value        `json:"old_value" db:"old_value"`
	NewValue      Value        `json:"new_value" db:"new_value"`
	Confidence    float64      `json:"confidence" db:"confidence"`
	SourceJob     *string      `json:"source_job,omitempty" db:"source_job"`
	Status        ReviewStatus `json:"status" db:"status"`
	ReviewComment *string      `json:"review_comment,omitempty" db:"review_comment"`
	ReviewedBy    *string      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	ResolvedAt    *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Resolution carries the terminal state written by approve/reject
type Resolution struct {
	Comment    *string
	ReviewedBy string
	ResolvedAt time.Time
}
