package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/chat"
)

// ChatStore bundles the repositories the chat pipeline consumes behind the
// chat.Store port.
type ChatStore struct {
	db     *DB
	habits *HabitRepository
	tags   *TagRepository
	facts  *FactRepository
}

// NewChatStore creates the chat-facing store
func NewChatStore(db *DB, habits *HabitRepository, tags *TagRepository, facts *FactRepository) *ChatStore {
	return &ChatStore{db: db, habits: habits, tags: tags, facts: facts}
}

// FindActiveHabits returns the user's non-archived habits
func (s *ChatStore) FindActiveHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	return s.habits.GetActiveByUserID(ctx, userID)
}

// GetHabit returns one habit by id
func (s *ChatStore) GetHabit(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	return s.habits.GetByID(ctx, id)
}

// FindTags returns the user's tags
func (s *ChatStore) FindTags(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error) {
	return s.tags.GetByUserID(ctx, userID)
}

// GetTag returns one tag by id
func (s *ChatStore) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	return s.tags.GetByID(ctx, id)
}

// FindHabitTagIDs returns the ids of tags already attached to a habit
func (s *ChatStore) FindHabitTagIDs(ctx context.Context, habitID uuid.UUID) ([]uuid.UUID, error) {
	return s.habits.FindTagIDs(ctx, habitID)
}

// FindFacts returns the user's non-deleted facts
func (s *ChatStore) FindFacts(ctx context.Context, userID uuid.UUID) ([]*models.UserFact, error) {
	return s.facts.GetActiveByUserID(ctx, userID)
}

// NewBatch starts an empty unit of work
func (s *ChatStore) NewBatch() chat.Batch {
	return s.db.NewUnitOfWork()
}

var _ chat.Store = (*ChatStore)(nil)
