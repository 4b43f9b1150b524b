package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeBucket is a coarse time-of-day slot used for routine inference
type TimeBucket string

const (
	TimeBucketMorning   TimeBucket = "morning"
	TimeBucketAfternoon TimeBucket = "afternoon"
	TimeBucketEvening   TimeBucket = "evening"
)

// RoutinePattern describes a recurring logging behavior inferred from a
// user's habit logs. Advisory only: used as interpreter context and for
// schedule conflict detection, never as a source of truth.
type RoutinePattern struct {
	HabitID       uuid.UUID      `json:"habit_id"`
	HabitTitle    string         `json:"habit_title"`
	Weekdays      []time.Weekday `json:"weekdays,omitempty"`
	TimeBucket    TimeBucket     `json:"time_bucket"`
	FrequencyUnit *FrequencyUnit `json:"frequency_unit,omitempty"`
	Occurrences   int            `json:"occurrences"`
}

// ConflictSeverity grades how badly a proposed schedule collides with an
// existing routine
type ConflictSeverity string

const (
	ConflictSeverityHigh   ConflictSeverity = "HIGH"
	ConflictSeverityMedium ConflictSeverity = "MEDIUM"
	ConflictSeverityLow    ConflictSeverity = "LOW"
)

// ScheduleConflict is advisory data attached to a successful habit creation
// when the proposed schedule overlaps the user's existing routine.
type ScheduleConflict struct {
	Severity        ConflictSeverity `json:"severity"`
	CollidingHabits []string         `json:"colliding_habits"`
	Recommendation  string           `json:"recommendation,omitempty"`
}
