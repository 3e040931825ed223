package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted after successful writes
const (
	EventUserRegistered = "user.registered"
	EventExpenseCreated = "expense.created"
	EventExpenseDeleted = "expense.deleted"
	EventPlanCreated    = "plan.created"
	EventPlanUpdated    = "plan.updated"
	EventPlanDeleted    = "plan.deleted"
)

// Event records that something happened to a user's data
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	SubjectID  string    `json:"subject_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent creates an event stamped with a fresh id and the current time
func NewEvent(eventType, userID, subjectID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
	}
}
