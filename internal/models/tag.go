package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag represents a user-defined label that can be attached to habits
type Tag struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
