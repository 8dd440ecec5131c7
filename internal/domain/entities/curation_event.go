package entities

import (
	"time"

	"github.com/google/uuid"
)

// CurationEventType names a committed state change other processes may react to
type CurationEventType string

const (
	EventRecordPromoted  CurationEventType = "record.promoted"
	EventRecordUpdated   CurationEventType = "record.updated"
	EventReviewResolved  CurationEventType = "review.resolved"
	EventStagingApproved CurationEventType = "staging.approved"
	EventStagingRejected CurationEventType = "staging.rejected"
)

// CurationEvent is published after a transition commits
type CurationEvent struct {
	ID        string            `json:"id"`
	Type      CurationEventType `json:"type"`
	EntityID  string            `json:"entity_id"`
	Actor     string            `json:"actor,omitempty"`
	Fields    []string          `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewCurationEvent creates a new curation event
func NewCurationEvent(eventType CurationEventType, entityID, actor string, fields ...string) *CurationEvent {
	return &CurationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Actor:     actor,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}
