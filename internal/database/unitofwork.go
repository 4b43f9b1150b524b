package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

type tagLink struct {
	habitID uuid.UUID
	tagID   uuid.UUID
}

// UnitOfWork collects pending writes and applies them in a single
// transaction. Staging never touches the database, so a failed action plan
// leaves no partial state behind; only Commit writes anything.
type UnitOfWork struct {
	db       *DB
	habits   []*models.Habit
	logs     []*models.HabitLog
	tagLinks []tagLink
	facts    []*models.UserFact
}

// NewUnitOfWork creates an empty unit of work
func (db *DB) NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{db: db}
}

// StageHabit queues a habit for insertion. Parents must be staged before
// their children.
func (u *UnitOfWork) StageHabit(habit *models.Habit) {
	u.habits = append(u.habits, habit)
}

// StageLog queues a habit log for insertion
func (u *UnitOfWork) StageLog(log *models.HabitLog) {
	u.logs = append(u.logs, log)
}

// StageTagLink queues a habit-tag association. Duplicate links are a no-op
// at commit time.
func (u *UnitOfWork) StageTagLink(habitID, tagID uuid.UUID) {
	u.tagLinks = append(u.tagLinks, tagLink{habitID: habitID, tagID: tagID})
}

// StageFact queues a user fact for insertion
func (u *UnitOfWork) StageFact(fact *models.UserFact) {
	u.facts = append(u.facts, fact)
}

// Len returns the number of staged writes
func (u *UnitOfWork) Len() int {
	return len(u.habits) + len(u.logs) + len(u.tagLinks) + len(u.facts)
}

// Commit applies all staged writes in one transaction. The unit of work is
// not reusable after a successful commit.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.Len() == 0 {
		return nil
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	for _, habit := range u.habits {
		args := append(habitArgs(habit), now, now)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO habits (`+habitColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, args...); err != nil {
			return fmt.Errorf("failed to insert habit %s: %w", habit.ID, err)
		}
	}

	for _, log := range u.logs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO habit_logs (id, habit_id, log_date, note, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, log.ID, log.HabitID, log.LogDate, log.Note, now); err != nil {
			return fmt.Errorf("failed to insert habit log %s: %w", log.ID, err)
		}
	}

	for _, link := range u.tagLinks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO habit_tags (habit_id, tag_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (habit_id, tag_id) DO NOTHING
		`, link.habitID, link.tagID, now); err != nil {
			return fmt.Errorf("failed to insert habit tag link: %w", err)
		}
	}

	for _, fact := range u.facts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_facts (id, user_id, text, category, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, fact.ID, fact.UserID, fact.Text, fact.Category, now); err != nil {
			return fmt.Errorf("failed to insert fact %s: %w", fact.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}

	return nil
}
