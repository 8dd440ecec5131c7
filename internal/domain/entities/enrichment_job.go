package entities

import "time"

// EnrichmentJobStatus is the lifecycle of a diff preview
type EnrichmentJobStatus string

const (
	EnrichmentPending EnrichmentJobStatus = "pending"
	EnrichmentReady   EnrichmentJobStatus = "ready"
	EnrichmentApplied EnrichmentJobStatus = "applied"
	EnrichmentFailed  EnrichmentJobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change
func (s EnrichmentJobStatus) IsTerminal() bool {
	return s == EnrichmentApplied || s == EnrichmentFailed
}

// EnrichmentJob correlates one upstream enrichment run with the record it proposes changes for
type EnrichmentJob struct {
	ID           string              `json:"id" db:"id"`
	RecordID     string              `json:"record_id" db:"record_id"`
	Status       EnrichmentJobStatus `json:"status" db:"status"`
	Proposed     []ProposedChange    `json:"proposed,omitempty" db:"proposed"`
	AppliedItems []DiffItem          `json:"applied_items,omitempty" db:"applied_items"`
	Error        string              `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	AppliedAt    *time.Time          `json:"applied_at,omitempty" db:"applied_at"`
}

// DiffView is what reviewers poll while a job runs
type DiffView struct {
	JobID    string              `json:"job_id"`
	RecordID string              `json:"record_id"`
	Status   EnrichmentJobStatus `json:"status"`
	Items    []DiffItem          `json:"items"`
	Changed  int                 `json:"changed"`
}
