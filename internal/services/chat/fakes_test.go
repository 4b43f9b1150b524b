package chat

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

// fakeBatch records staged writes and counts commits
type fakeBatch struct {
	habits    []*models.Habit
	logs      []*models.HabitLog
	tagLinks  [][2]uuid.UUID
	facts     []*models.UserFact
	commitErr error
	commits   int
}

func (b *fakeBatch) StageHabit(h *models.Habit) { b.habits = append(b.habits, h) }
func (b *fakeBatch) StageLog(l *models.HabitLog) {
	b.logs = append(b.logs, l)
}
func (b *fakeBatch) StageTagLink(habitID, tagID uuid.UUID) {
	b.tagLinks = append(b.tagLinks, [2]uuid.UUID{habitID, tagID})
}
func (b *fakeBatch) StageFact(f *models.UserFact) { b.facts = append(b.facts, f) }
func (b *fakeBatch) Len() int {
	return len(b.habits) + len(b.logs) + len(b.tagLinks) + len(b.facts)
}
func (b *fakeBatch) Commit(ctx context.Context) error {
	b.commits++
	return b.commitErr
}

// fakeStore serves fixtures from memory and hands out fakeBatch instances
type fakeStore struct {
	habits    map[uuid.UUID]*models.Habit
	tags      map[uuid.UUID]*models.Tag
	facts     []*models.UserFact
	habitTags map[uuid.UUID][]uuid.UUID

	commitErr error
	batches   []*fakeBatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		habits:    make(map[uuid.UUID]*models.Habit),
		tags:      make(map[uuid.UUID]*models.Tag),
		habitTags: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *fakeStore) FindActiveHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	var out []*models.Habit
	for _, h := range s.habits {
		if h.UserID == userID && !h.Archived {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) GetHabit(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	h, ok := s.habits[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return h, nil
}

func (s *fakeStore) FindTags(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error) {
	var out []*models.Tag
	for _, t := range s.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	t, ok := s.tags[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *fakeStore) FindHabitTagIDs(ctx context.Context, habitID uuid.UUID) ([]uuid.UUID, error) {
	return s.habitTags[habitID], nil
}

func (s *fakeStore) FindFacts(ctx context.Context, userID uuid.UUID) ([]*models.UserFact, error) {
	var out []*models.UserFact
	for _, f := range s.facts {
		if f.UserID == userID && f.DeletedAt == nil {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) NewBatch() Batch {
	b := &fakeBatch{commitErr: s.commitErr}
	s.batches = append(s.batches, b)
	return b
}

// fakeInterpreter returns a canned plan or error
type fakeInterpreter struct {
	plan *ActionPlan
	err  error
	got  *InterpretRequest
}

func (f *fakeInterpreter) Interpret(ctx context.Context, req *InterpretRequest) (*ActionPlan, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

// fakeConflicts returns a canned conflict or error
type fakeConflicts struct {
	conflict *models.ScheduleConflict
	err      error
	calls    int
}

func (f *fakeConflicts) DetectConflict(ctx context.Context, schedule ProposedSchedule, patterns []models.RoutinePattern) (*models.ScheduleConflict, error) {
	f.calls++
	return f.conflict, f.err
}

// fakeFacts returns canned candidates or an error
type fakeFacts struct {
	candidates []FactCandidate
	err        error
	calls      int
}

func (f *fakeFacts) ExtractFacts(ctx context.Context, userMessage, assistantReply string, known []*models.UserFact) ([]FactCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

// fakeRoutines serves canned patterns
type fakeRoutines struct {
	patterns []models.RoutinePattern
	err      error
}

func (f *fakeRoutines) Patterns(ctx context.Context, userID uuid.UUID) ([]models.RoutinePattern, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.patterns, nil
}

// fakeNotifier records activity notifications
type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) HabitActivity(ctx context.Context, userID uuid.UUID) error {
	f.calls++
	return f.err
}

var errBoom = errors.New("boom")
