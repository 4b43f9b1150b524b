package models

import (
	"time"

	"github.com/google/uuid"
)

// FactCategory classifies a learned fact about a user
type FactCategory string

const (
	FactCategoryPreference FactCategory = "preference"
	FactCategorySchedule   FactCategory = "schedule"
	FactCategoryGoal       FactCategory = "goal"
	FactCategoryConstraint FactCategory = "constraint"
	FactCategoryOther      FactCategory = "other"
)

// UserFact is a durable piece of information learned about a user from
// conversation. Facts are soft-deleted; deduplication only considers facts
// with a nil DeletedAt.
type UserFact struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	Text      string       `json:"text"`
	Category  FactCategory `json:"category"`
	CreatedAt time.Time    `json:"created_at"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}
