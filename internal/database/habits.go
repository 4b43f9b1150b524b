package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/lib/pq"
)

// HabitRepository handles habit and habit log database operations
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

const habitColumns = `id, user_id, parent_id, title, description, frequency_unit, frequency_quantity, days_of_week, is_bad_habit, due_date, archived, created_at, updated_at`

func scanHabit(scan func(dest ...any) error) (*models.Habit, error) {
	habit := &models.Habit{}
	var (
		parentID    uuid.NullUUID
		description sql.NullString
		freqUnit    sql.NullString
		freqQty     sql.NullInt64
		days        pq.Int64Array
		dueDate     sql.NullTime
	)

	err := scan(
		&habit.ID,
		&habit.UserID,
		&parentID,
		&habit.Title,
		&description,
		&freqUnit,
		&freqQty,
		&days,
		&habit.IsBadHabit,
		&dueDate,
		&habit.Archived,
		&habit.CreatedAt,
		&habit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		habit.ParentID = &parentID.UUID
	}
	if description.Valid {
		habit.Description = &description.String
	}
	if freqUnit.Valid {
		unit := models.FrequencyUnit(freqUnit.String)
		habit.FrequencyUnit = &unit
	}
	if freqQty.Valid {
		qty := int(freqQty.Int64)
		habit.FrequencyQuantity = &qty
	}
	for _, d := range days {
		habit.DaysOfWeek = append(habit.DaysOfWeek, time.Weekday(d))
	}
	if dueDate.Valid {
		habit.DueDate = &dueDate.Time
	}

	return habit, nil
}

func habitArgs(habit *models.Habit) []any {
	var days pq.Int64Array
	for _, d := range habit.DaysOfWeek {
		days = append(days, int64(d))
	}
	return []any{
		habit.ID,
		habit.UserID,
		habit.ParentID,
		habit.Title,
		habit.Description,
		habit.FrequencyUnit,
		habit.FrequencyQuantity,
		days,
		habit.IsBadHabit,
		habit.DueDate,
		habit.Archived,
	}
}

// Create creates a new habit
func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	query := `
		INSERT INTO habits (` + habitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	args := append(habitArgs(habit), now, now)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&habit.CreatedAt, &habit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	habit, err := scanHabit(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("habit not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}

	return habit, nil
}

// GetActiveByUserID retrieves all non-archived habits for a user
func (r *HabitRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE user_id = $1 AND archived = FALSE
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []*models.Habit
	for rows.Next() {
		habit, err := scanHabit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, habit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	return habits, nil
}

// Update updates an existing habit
func (r *HabitRepository) Update(ctx context.Context, habit *models.Habit) error {
	query := `
		UPDATE habits
		SET title = $2, description = $3, frequency_unit = $4, frequency_quantity = $5,
		    days_of_week = $6, is_bad_habit = $7, due_date = $8, archived = $9, updated_at = $10
		WHERE id = $1
		RETURNING updated_at
	`

	var days pq.Int64Array
	for _, d := range habit.DaysOfWeek {
		days = append(days, int64(d))
	}

	err := r.db.QueryRowContext(ctx, query,
		habit.ID,
		habit.Title,
		habit.Description,
		habit.FrequencyUnit,
		habit.FrequencyQuantity,
		days,
		habit.IsBadHabit,
		habit.DueDate,
		habit.Archived,
		time.Now(),
	).Scan(&habit.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("habit not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	return nil
}

// Archive marks a habit as archived instead of deleting it
func (r *HabitRepository) Archive(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE habits SET archived = TRUE, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive habit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("habit not found")
	}

	return nil
}

// CreateLog creates a new habit log entry
func (r *HabitRepository) CreateLog(ctx context.Context, log *models.HabitLog) error {
	query := `
		INSERT INTO habit_logs (id, habit_id, log_date, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		log.ID,
		log.HabitID,
		log.LogDate,
		log.Note,
		time.Now(),
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create habit log: %w", err)
	}

	return nil
}

// FindTagIDs returns the ids of all tags attached to a habit
func (r *HabitRepository) FindTagIDs(ctx context.Context, habitID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT tag_id FROM habit_tags WHERE habit_id = $1`

	rows, err := r.db.QueryContext(ctx, query, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habit tags: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tag id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habit tags: %w", err)
	}

	return ids, nil
}

// HabitLogRow is one joined habit/log row used for routine inference
type HabitLogRow struct {
	HabitID       uuid.UUID
	HabitTitle    string
	FrequencyUnit *models.FrequencyUnit
	LogDate       string
	LoggedAt      time.Time
}

// RecentLogs returns log entries for a user's non-archived habits since the
// given time, joined with the owning habit. Used by the routine analyzer.
func (r *HabitRepository) RecentLogs(ctx context.Context, userID uuid.UUID, since time.Time) ([]HabitLogRow, error) {
	query := `
		SELECT h.id, h.title, h.frequency_unit, l.log_date, l.created_at
		FROM habit_logs l
		JOIN habits h ON h.id = l.habit_id
		WHERE h.user_id = $1 AND h.archived = FALSE AND l.created_at >= $2
		ORDER BY l.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent logs: %w", err)
	}
	defer rows.Close()

	var entries []HabitLogRow
	for rows.Next() {
		var (
			entry    HabitLogRow
			freqUnit sql.NullString
		)
		if err := rows.Scan(&entry.HabitID, &entry.HabitTitle, &freqUnit, &entry.LogDate, &entry.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		if freqUnit.Valid {
			unit := models.FrequencyUnit(freqUnit.String)
			entry.FrequencyUnit = &unit
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent logs: %w", err)
	}

	return entries, nil
}
