package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

// ActionType identifies one kind of AI-proposed operation
type ActionType string

const (
	ActionTypeLogHabit         ActionType = "log_habit"
	ActionTypeCreateHabit      ActionType = "create_habit"
	ActionTypeAssignTag        ActionType = "assign_tag"
	ActionTypeSuggestBreakdown ActionType = "suggest_breakdown"
)

// Action is one unit of work proposed by the intent interpreter. Each
// variant carries only the fields that are meaningful for it; a nil pointer
// or empty slice means the interpreter did not supply the value.
type Action interface {
	Type() ActionType
}

// LogHabitAction records a completion for an existing habit.
// HabitID is the raw id string from the interpreter; the executor validates
// it (present, parseable, exists, owned by the caller) before use.
type LogHabitAction struct {
	HabitID string
	Note    *string
}

func (LogHabitAction) Type() ActionType { return ActionTypeLogHabit }

// CreateHabitAction creates a new habit, optionally with inline sub-habits
// that share the parent's frequency and due date.
type CreateHabitAction struct {
	Title             string
	Description       *string
	FrequencyUnit     *models.FrequencyUnit
	FrequencyQuantity *int
	DaysOfWeek        []time.Weekday
	IsBadHabit        *bool
	DueDate           *time.Time
	SubHabitTitles    []string
}

func (CreateHabitAction) Type() ActionType { return ActionTypeCreateHabit }

// AssignTagAction attaches one or more existing tags to a habit. Invalid or
// foreign tag ids are skipped silently; the action fails only when the habit
// itself is missing or not owned by the caller.
type AssignTagAction struct {
	HabitID string
	TagIDs  []string
}

func (AssignTagAction) Type() ActionType { return ActionTypeAssignTag }

// SuggestedSubHabit is one proposed child habit inside a breakdown suggestion
type SuggestedSubHabit struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// SuggestBreakdownAction proposes splitting a habit into sub-habits. It never
// mutates state; the client confirms before anything is created.
type SuggestBreakdownAction struct {
	Title     string
	SubHabits []SuggestedSubHabit
}

func (SuggestBreakdownAction) Type() ActionType { return ActionTypeSuggestBreakdown }

// UnknownAction preserves an unrecognized variant tag so the executor can
// report it as a failed result instead of dropping it.
type UnknownAction struct {
	Raw ActionType
}

func (a UnknownAction) Type() ActionType { return a.Raw }

// ActionPlan is the structured result of interpreting one user message
type ActionPlan struct {
	Message string
	Actions []Action
}

// ActionStatus is the outcome class of one executed action
type ActionStatus string

const (
	StatusSuccess    ActionStatus = "success"
	StatusFailed     ActionStatus = "failed"
	StatusSuggestion ActionStatus = "suggestion"
)

// ActionResult is the outcome of executing one Action. Results are returned
// in the same order and count as the plan's actions.
type ActionResult struct {
	Type      ActionType               `json:"type"`
	Status    ActionStatus             `json:"status"`
	EntityID  *uuid.UUID               `json:"entity_id,omitempty"`
	Name      string                   `json:"name,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Conflict  *models.ScheduleConflict `json:"conflict,omitempty"`
	SubHabits []SuggestedSubHabit      `json:"sub_habits,omitempty"`
}

// Response is what the chat pipeline hands back to the API layer
type Response struct {
	Message string         `json:"message"`
	Results []ActionResult `json:"results"`
}

// ActionEnvelope is the tagged-union wire shape the interpreter produces.
// Absent fields stay nil; Decode maps the envelope onto a typed variant.
type ActionEnvelope struct {
	ActionType        string              `json:"type"`
	HabitID           *string             `json:"habit_id,omitempty"`
	Title             *string             `json:"title,omitempty"`
	Description       *string             `json:"description,omitempty"`
	FrequencyUnit     *string             `json:"frequency_unit,omitempty"`
	FrequencyQuantity *int                `json:"frequency_quantity,omitempty"`
	DaysOfWeek        []string            `json:"days_of_week,omitempty"`
	IsBadHabit        *bool               `json:"is_bad_habit,omitempty"`
	DueDate           *string             `json:"due_date,omitempty"`
	Note              *string             `json:"note,omitempty"`
	SubHabitTitles    []string            `json:"sub_habits,omitempty"`
	TagIDs            []string            `json:"tag_ids,omitempty"`
	Suggestions       []SuggestedSubHabit `json:"suggestions,omitempty"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Decode converts the wire envelope into a typed Action. Unrecognized
// variant tags become UnknownAction; semantic validation (existence,
// ownership) is the executor's job, not Decode's.
func (e ActionEnvelope) Decode() Action {
	switch ActionType(e.ActionType) {
	case ActionTypeLogHabit:
		a := LogHabitAction{Note: e.Note}
		if e.HabitID != nil {
			a.HabitID = *e.HabitID
		}
		return a
	case ActionTypeCreateHabit:
		a := CreateHabitAction{
			Description:       e.Description,
			FrequencyQuantity: e.FrequencyQuantity,
			IsBadHabit:        e.IsBadHabit,
			SubHabitTitles:    e.SubHabitTitles,
		}
		if e.Title != nil {
			a.Title = *e.Title
		}
		if e.FrequencyUnit != nil {
			unit := models.FrequencyUnit(strings.ToLower(*e.FrequencyUnit))
			switch unit {
			case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
				a.FrequencyUnit = &unit
			}
		}
		for _, name := range e.DaysOfWeek {
			if day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
				a.DaysOfWeek = append(a.DaysOfWeek, day)
			}
		}
		if e.DueDate != nil {
			if due, err := parseDueDate(*e.DueDate); err == nil {
				a.DueDate = &due
			}
		}
		return a
	case ActionTypeAssignTag:
		a := AssignTagAction{TagIDs: e.TagIDs}
		if e.HabitID != nil {
			a.HabitID = *e.HabitID
		}
		return a
	case ActionTypeSuggestBreakdown:
		a := SuggestBreakdownAction{SubHabits: e.Suggestions}
		if a.SubHabits == nil {
			// some interpreter responses put plain titles in sub_habits instead
			for _, title := range e.SubHabitTitles {
				a.SubHabits = append(a.SubHabits, SuggestedSubHabit{Title: title})
			}
		}
		if e.Title != nil {
			a.Title = *e.Title
		}
		return a
	default:
		return UnknownAction{Raw: ActionType(e.ActionType)}
	}
}

// parseDueDate accepts either a bare date or a full RFC3339 timestamp
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
