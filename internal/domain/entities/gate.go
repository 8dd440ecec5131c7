package entities

// GateCheckResult is the readiness checklist for one record.
// Score and MaxScore count required rules only.
type GateCheckResult struct {
	RecordID  string                     `json:"record_id,omitempty"`
	Version   int64                      `json:"version,omitempty"`
	Profile   string                     `json:"profile"`
	Passed    bool                       `json:"passed"`
	Score     int                        `json:"score"`
	MaxScore  int                        `json:"max_score"`
	Checks    map[string]bool            `json:"checks"`
	Optional  map[string]bool            `json:"optional"`
	SubChecks map[string]map[string]bool `json:"sub_checks,omitempty"`
	Order     []string                   `json:"order"`
}

// FailedChecks returns the required rules that did not pass, in evaluation order
func (r *GateCheckResult) FailedChecks() []string {
	var failed []string
	for _, name := range r.Order {
		if ok, required := r.Checks[name]; required && !ok {
			failed = append(failed, name)
		}
	}
	return failed
}

// PromotionStatus describes the outcome of a promote call
type PromotionStatus string

const (
	PromotionPromoted     PromotionStatus = "promoted"
	PromotionAlreadyFinal PromotionStatus = "already_final"
)

// PromotionResult is returned by a successful or no-op promotion
type PromotionResult struct {
	RecordID string           `json:"record_id"`
	Status   PromotionStatus  `json:"status"`
	Message  string           `json:"message"`
	Gates    *GateCheckResult `json:"gates,omitempty"`
	Record   *CurationRecord  `json:"record,omitempty"`
}
