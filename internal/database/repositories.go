package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

// HabitRepositoryInterface defines the interface for habit repository
// operations. This interface enables better testability by allowing mock
// implementations.
type HabitRepositoryInterface interface {
	Create(ctx context.Context, habit *models.Habit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error)
	Update(ctx context.Context, habit *models.Habit) error
	Archive(ctx context.Context, id uuid.UUID) error
	CreateLog(ctx context.Context, log *models.HabitLog) error
	RecentLogs(ctx context.Context, userID uuid.UUID, since time.Time) ([]HabitLogRow, error)
}

// TagRepositoryInterface defines the interface for tag repository operations
type TagRepositoryInterface interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error)
}

// FactRepositoryInterface defines the interface for fact repository operations
type FactRepositoryInterface interface {
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserFact, error)
	SoftDelete(ctx context.Context, id, userID uuid.UUID) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ HabitRepositoryInterface = (*HabitRepository)(nil)
	_ TagRepositoryInterface   = (*TagRepository)(nil)
	_ FactRepositoryInterface  = (*FactRepository)(nil)
	_ UserRepositoryInterface  = (*UserRepository)(nil)
)
