package entities

// BatchFailure names one item a batch could not process and why
type BatchFailure struct {
	ID        string `json:"id"`
	Reason    string `json:"reason"`
	ErrorType string `json:"error_type"`
}

// BatchResult reports a bulk operation item by item. It is a report, not a rollback unit.
type BatchResult struct {
	ApprovedCount int            `json:"approved_count"`
	FailedCount   int            `json:"failed_count"`
	SkippedCount  int            `json:"skipped_count,omitempty"`
	Approved      []string       `json:"approved"`
	Failures      []BatchFailure `json:"failures"`
}

// FailedIDs returns the ids a reviewer can retry
func (b *BatchResult) FailedIDs() []string {
	ids := make([]string, 0, len(b.Failures))
	for _, f := range b.Failures {
		ids = append(ids, f.ID)
	}
	return ids
}
