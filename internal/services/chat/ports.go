package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

// InterpretRequest carries one user message plus the read-only context the
// interpreter needs to produce a plan.
type InterpretRequest struct {
	Message   string
	Image     []byte
	ImageMIME string
	Habits    []*models.Habit
	Tags      []*models.Tag
	Facts     []*models.UserFact
	Patterns  []models.RoutinePattern
}

// Interpreter turns a free-text message into a structured action plan.
// It must be treated as unreliable and slow; an error here fails the whole
// chat request. The returned plan is trusted at the schema level only --
// the executor re-validates every id and ownership claim.
type Interpreter interface {
	Interpret(ctx context.Context, req *InterpretRequest) (*ActionPlan, error)
}

// ProposedSchedule describes the cadence of a habit about to be created
type ProposedSchedule struct {
	Title             string
	FrequencyUnit     models.FrequencyUnit
	FrequencyQuantity int
	DaysOfWeek        []time.Weekday
}

// ConflictDetector checks a proposed schedule against the user's routine.
// Purely advisory: callers wrap it in a best-effort helper and creation
// proceeds regardless of the outcome. A nil conflict means no overlap found.
type ConflictDetector interface {
	DetectConflict(ctx context.Context, schedule ProposedSchedule, patterns []models.RoutinePattern) (*models.ScheduleConflict, error)
}

// FactCandidate is one piece of information proposed for long-term memory
type FactCandidate struct {
	Text     string
	Category models.FactCategory
}

// FactExtractor proposes durable facts from one conversation turn. Best
// effort: failures are logged and swallowed by the caller.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, userMessage, assistantReply string, known []*models.UserFact) ([]FactCandidate, error)
}

// RoutineSource provides the user's inferred routine patterns. Best effort:
// a failure degrades to an empty pattern set, never to a request failure.
type RoutineSource interface {
	Patterns(ctx context.Context, userID uuid.UUID) ([]models.RoutinePattern, error)
}

// RoutineNotifier signals that a user's habits or logs changed so routine
// patterns can be recomputed out of band. Best effort.
type RoutineNotifier interface {
	HabitActivity(ctx context.Context, userID uuid.UUID) error
}

// Batch accumulates pending writes and persists them in one commit.
// Staging never touches storage; Commit applies everything atomically.
type Batch interface {
	StageHabit(habit *models.Habit)
	StageLog(log *models.HabitLog)
	StageTagLink(habitID, tagID uuid.UUID)
	StageFact(fact *models.UserFact)
	Len() int
	Commit(ctx context.Context) error
}

// Store is the slice of the domain layer the chat pipeline consumes
type Store interface {
	FindActiveHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error)
	GetHabit(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	FindTags(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error)
	GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	FindHabitTagIDs(ctx context.Context, habitID uuid.UUID) ([]uuid.UUID, error)
	FindFacts(ctx context.Context, userID uuid.UUID) ([]*models.UserFact, error)
	NewBatch() Batch
}
