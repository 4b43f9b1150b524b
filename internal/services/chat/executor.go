package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
	"go.uber.org/zap"
)

// Executor dispatches one action at a time to the matching domain mutation.
// Mutations are staged into the request's batch, never written directly;
// every failure is scoped to the single action that caused it.
type Executor struct {
	store     Store
	conflicts ConflictDetector
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutor creates an action executor. conflicts may be nil, in which
// case schedule conflict checks are skipped entirely.
func NewExecutor(store Store, conflicts ConflictDetector, logger *zap.Logger) *Executor {
	return &Executor{
		store:     store,
		conflicts: conflicts,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute runs a single action for the given user, staging any writes into
// batch. It always returns exactly one result and never returns an error:
// precondition violations become Failed results.
func (e *Executor) Execute(ctx context.Context, user *models.User, action Action, patterns []models.RoutinePattern, batch Batch) ActionResult {
	switch a := action.(type) {
	case LogHabitAction:
		return e.executeLogHabit(ctx, user, a, batch)
	case CreateHabitAction:
		return e.executeCreateHabit(ctx, user, a, patterns, batch)
	case AssignTagAction:
		return e.executeAssignTag(ctx, user, a, batch)
	case SuggestBreakdownAction:
		return executeSuggestBreakdown(a)
	default:
		return ActionResult{
			Type:   action.Type(),
			Status: StatusFailed,
			Error:  fmt.Sprintf("unknown action type %q", action.Type()),
		}
	}
}

func (e *Executor) executeLogHabit(ctx context.Context, user *models.User, a LogHabitAction, batch Batch) ActionResult {
	failed := func(msg string) ActionResult {
		return ActionResult{Type: ActionTypeLogHabit, Status: StatusFailed, Error: msg}
	}

	if strings.TrimSpace(a.HabitID) == "" {
		return failed("Habit ID is required")
	}

	habitID, err := uuid.Parse(a.HabitID)
	if err != nil {
		return failed(fmt.Sprintf("Habit %s not found", a.HabitID))
	}

	habit, err := e.store.GetHabit(ctx, habitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failed(fmt.Sprintf("Habit %s not found", habitID))
		}
		e.logger.Error("log_habit_lookup_failed",
			zap.String("habit_id", habitID.String()),
			zap.Error(err),
		)
		return failed(fmt.Sprintf("Habit %s not found", habitID))
	}
	if habit.UserID != user.ID {
		// Do not reveal that the habit exists under another account
		return failed(fmt.Sprintf("Habit %s not found", habitID))
	}

	date := LocalDate(user, e.now())
	result := habit.Log(date, a.Note)
	batch.StageLog(result.Log)

	return ActionResult{
		Type:     ActionTypeLogHabit,
		Status:   StatusSuccess,
		EntityID: &habit.ID,
		Name:     habit.Title,
	}
}

func (e *Executor) executeCreateHabit(ctx context.Context, user *models.User, a CreateHabitAction, patterns []models.RoutinePattern, batch Batch) ActionResult {
	failed := func(msg string) ActionResult {
		return ActionResult{Type: ActionTypeCreateHabit, Status: StatusFailed, Error: msg}
	}

	title := strings.TrimSpace(a.Title)
	if title == "" {
		return failed("Habit title is required")
	}

	now := e.now()
	parent := &models.Habit{
		ID:                uuid.New(),
		UserID:            user.ID,
		Title:             title,
		Description:       a.Description,
		FrequencyUnit:     a.FrequencyUnit,
		FrequencyQuantity: a.FrequencyQuantity,
		DaysOfWeek:        a.DaysOfWeek,
		DueDate:           a.DueDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if a.IsBadHabit != nil {
		parent.IsBadHabit = *a.IsBadHabit
	}

	// Build all children before staging anything: one bad sub-habit aborts
	// the whole action, parent included.
	children := make([]*models.Habit, 0, len(a.SubHabitTitles))
	for _, subTitle := range a.SubHabitTitles {
		subTitle = strings.TrimSpace(subTitle)
		if subTitle == "" {
			return failed("Sub-habit title cannot be empty")
		}
		children = append(children, &models.Habit{
			ID:                uuid.New(),
			UserID:            user.ID,
			ParentID:          &parent.ID,
			Title:             subTitle,
			FrequencyUnit:     a.FrequencyUnit,
			FrequencyQuantity: a.FrequencyQuantity,
			DueDate:           a.DueDate,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	batch.StageHabit(parent)
	for _, child := range children {
		batch.StageHabit(child)
	}

	result := ActionResult{
		Type:     ActionTypeCreateHabit,
		Status:   StatusSuccess,
		EntityID: &parent.ID,
		Name:     parent.Title,
	}

	if a.FrequencyUnit != nil {
		result.Conflict = e.tryDetectConflict(ctx, a, title, patterns)
	}

	return result
}

// tryDetectConflict asks the conflict service whether the proposed schedule
// collides with the user's routine. Informational only: any failure is
// logged and reported as "no conflict".
func (e *Executor) tryDetectConflict(ctx context.Context, a CreateHabitAction, title string, patterns []models.RoutinePattern) *models.ScheduleConflict {
	if e.conflicts == nil || len(patterns) == 0 {
		return nil
	}

	schedule := ProposedSchedule{
		Title:         title,
		FrequencyUnit: *a.FrequencyUnit,
		DaysOfWeek:    a.DaysOfWeek,
	}
	if a.FrequencyQuantity != nil {
		schedule.FrequencyQuantity = *a.FrequencyQuantity
	}

	conflict, err := e.conflicts.DetectConflict(ctx, schedule, patterns)
	if err != nil {
		e.logger.Warn("conflict_detection_failed",
			zap.String("habit_title", title),
			zap.Error(err),
		)
		return nil
	}
	return conflict
}

func (e *Executor) executeAssignTag(ctx context.Context, user *models.User, a AssignTagAction, batch Batch) ActionResult {
	failed := func(msg string) ActionResult {
		return ActionResult{Type: ActionTypeAssignTag, Status: StatusFailed, Error: msg}
	}

	if strings.TrimSpace(a.HabitID) == "" {
		return failed("Habit ID is required")
	}
	if len(a.TagIDs) == 0 {
		return failed("At least one tag ID is required")
	}

	habitID, err := uuid.Parse(a.HabitID)
	if err != nil {
		return failed(fmt.Sprintf("Habit %s not found", a.HabitID))
	}

	habit, err := e.store.GetHabit(ctx, habitID)
	if err != nil || habit.UserID != user.ID {
		return failed(fmt.Sprintf("Habit %s not found", habitID))
	}

	attached := make(map[uuid.UUID]bool)
	existing, err := e.store.FindHabitTagIDs(ctx, habitID)
	if err != nil {
		e.logger.Warn("habit_tag_lookup_failed",
			zap.String("habit_id", habitID.String()),
			zap.Error(err),
		)
	}
	for _, id := range existing {
		attached[id] = true
	}

	// Invalid, unknown, or foreign tag ids are skipped silently; the action
	// succeeds as long as the habit itself was valid.
	for _, raw := range a.TagIDs {
		tagID, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		if attached[tagID] {
			continue
		}
		tag, err := e.store.GetTag(ctx, tagID)
		if err != nil || tag.UserID != user.ID {
			continue
		}
		batch.StageTagLink(habitID, tagID)
		attached[tagID] = true
	}

	return ActionResult{
		Type:     ActionTypeAssignTag,
		Status:   StatusSuccess,
		EntityID: &habit.ID,
		Name:     habit.Title,
	}
}

func executeSuggestBreakdown(a SuggestBreakdownAction) ActionResult {
	// Pure pass-through: the suggestion is surfaced for client confirmation
	// and must never create or mutate domain state.
	return ActionResult{
		Type:      ActionTypeSuggestBreakdown,
		Status:    StatusSuggestion,
		Name:      a.Title,
		SubHabits: a.SubHabits,
	}
}
