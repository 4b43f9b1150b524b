package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
	"go.uber.org/zap"
)

// fetchPatterns loads the user's routine patterns. Best effort: any failure
// degrades to an empty pattern set and must never abort the request.
func (s *Service) fetchPatterns(ctx context.Context, user *models.User) []models.RoutinePattern {
	if s.routines == nil {
		return nil
	}
	patterns, err := s.routines.Patterns(ctx, user.ID)
	if err != nil {
		s.logger.Warn("routine_pattern_fetch_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	return patterns
}

// extractFacts runs the fact extraction pass over one conversation turn and
// persists accepted candidates in a commit of its own. Every failure mode,
// the provider call included, is logged and swallowed.
func (s *Service) extractFacts(ctx context.Context, user *models.User, userMessage, assistantReply string, known []*models.UserFact) {
	if s.facts == nil {
		return
	}

	candidates, err := s.facts.ExtractFacts(ctx, userMessage, assistantReply, known)
	if err != nil {
		s.logger.Warn("fact_extraction_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return
	}
	if len(candidates) == 0 {
		return
	}

	accepted := DedupeFactCandidates(candidates, known)
	if len(accepted) == 0 {
		return
	}

	batch := s.store.NewBatch()
	now := time.Now()
	for _, c := range accepted {
		batch.StageFact(&models.UserFact{
			ID:        uuid.New(),
			UserID:    user.ID,
			Text:      strings.TrimSpace(c.Text),
			Category:  c.Category,
			CreatedAt: now,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		s.logger.Warn("fact_commit_failed",
			zap.String("user_id", user.ID.String()),
			zap.Int("fact_count", len(accepted)),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("facts_learned",
		zap.String("user_id", user.ID.String()),
		zap.Int("fact_count", len(accepted)),
	)
}

// notifyRoutineChange enqueues a routine re-analysis for the user. Best
// effort.
func (s *Service) notifyRoutineChange(ctx context.Context, user *models.User) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.HabitActivity(ctx, user.ID); err != nil {
		s.logger.Warn("routine_notify_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
}

// NormalizeFactText is the canonical form used for fact deduplication:
// whitespace-trimmed, lowercased exact text.
func NormalizeFactText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// DedupeFactCandidates drops candidates whose normalized text matches an
// existing non-deleted fact or an earlier candidate in the same batch.
// Duplicates are discarded silently. Candidates with empty text or an
// unrecognized category are normalized rather than rejected.
func DedupeFactCandidates(candidates []FactCandidate, known []*models.UserFact) []FactCandidate {
	seen := make(map[string]bool, len(known))
	for _, fact := range known {
		if fact.DeletedAt != nil {
			continue
		}
		seen[NormalizeFactText(fact.Text)] = true
	}

	accepted := make([]FactCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := NormalizeFactText(c.Text)
		if key == "" || seen[key] {
			continue
		}
		switch c.Category {
		case models.FactCategoryPreference, models.FactCategorySchedule,
			models.FactCategoryGoal, models.FactCategoryConstraint:
		default:
			c.Category = models.FactCategoryOther
		}
		seen[key] = true
		accepted = append(accepted, c)
	}
	return accepted
}
