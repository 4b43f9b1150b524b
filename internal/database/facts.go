package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

// FactRepository handles user fact database operations
type FactRepository struct {
	db *DB
}

// NewFactRepository creates a new fact repository
func NewFactRepository(db *DB) *FactRepository {
	return &FactRepository{db: db}
}

// Create creates a new fact
func (r *FactRepository) Create(ctx context.Context, fact *models.UserFact) error {
	query := `
		INSERT INTO user_facts (id, user_id, text, category, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		fact.ID,
		fact.UserID,
		fact.Text,
		fact.Category,
		time.Now(),
	).Scan(&fact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create fact: %w", err)
	}

	return nil
}

// GetActiveByUserID retrieves all non-deleted facts for a user
func (r *FactRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserFact, error) {
	query := `
		SELECT id, user_id, text, category, created_at, deleted_at
		FROM user_facts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.UserFact
	for rows.Next() {
		fact := &models.UserFact{}
		var deletedAt sql.NullTime
		if err := rows.Scan(&fact.ID, &fact.UserID, &fact.Text, &fact.Category, &fact.CreatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		if deletedAt.Valid {
			fact.DeletedAt = &deletedAt.Time
		}
		facts = append(facts, fact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating facts: %w", err)
	}

	return facts, nil
}

// SoftDelete marks a fact as deleted; deleted facts no longer participate in
// deduplication
func (r *FactRepository) SoftDelete(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE user_facts SET deleted_at = $3 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete fact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("fact not found")
	}

	return nil
}
