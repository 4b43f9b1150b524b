package models

import (
	"time"

	"github.com/google/uuid"
)

// FrequencyUnit represents how often a habit repeats
type FrequencyUnit string

const (
	FrequencyDaily   FrequencyUnit = "daily"
	FrequencyWeekly  FrequencyUnit = "weekly"
	FrequencyMonthly FrequencyUnit = "monthly"
)

// Habit represents a tracked habit
type Habit struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	ParentID          *uuid.UUID     `json:"parent_id,omitempty"` // set for sub-habits
	Title             string         `json:"title"`
	Description       *string        `json:"description,omitempty"`
	FrequencyUnit     *FrequencyUnit `json:"frequency_unit,omitempty"`
	FrequencyQuantity *int           `json:"frequency_quantity,omitempty"`
	DaysOfWeek        []time.Weekday `json:"days_of_week,omitempty"`
	IsBadHabit        bool           `json:"is_bad_habit"`
	DueDate           *time.Time     `json:"due_date,omitempty"`
	Archived          bool           `json:"archived"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// HabitLog represents a single completion record for a habit.
// LogDate is a calendar date in the user's timezone, stored as YYYY-MM-DD.
type HabitLog struct {
	ID        uuid.UUID `json:"id"`
	HabitID   uuid.UUID `json:"habit_id"`
	LogDate   string    `json:"log_date"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LogResult is the outcome of logging a habit
type LogResult struct {
	Log        *HabitLog `json:"log"`
	HabitTitle string    `json:"habit_title"`
}

// LogDateFormat is the storage format for HabitLog.LogDate
const LogDateFormat = "2006-01-02"

// Log records a completion of the habit on the given date. Streak and trend
// math lives in the reporting layer; this only constructs the log entity.
func (h *Habit) Log(date time.Time, note *string) *LogResult {
	entry := &HabitLog{
		ID:        uuid.New(),
		HabitID:   h.ID,
		LogDate:   date.Format(LogDateFormat),
		Note:      note,
		CreatedAt: time.Now(),
	}
	return &LogResult{Log: entry, HabitTitle: h.Title}
}
