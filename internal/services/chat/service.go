package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kmettler/habitloop/internal/models"
	"go.uber.org/zap"
)

// ErrInterpretation marks a failure of the intent interpreter. It is the
// only error class that aborts a chat request outright; everything after
// interpretation degrades per action or silently.
var ErrInterpretation = errors.New("interpretation failed")

// Service sequences one chat request: context gathering, interpretation,
// action execution, the primary commit, and the best-effort enrichment
// passes.
type Service struct {
	store       Store
	interpreter Interpreter
	facts       FactExtractor
	routines    RoutineSource
	notifier    RoutineNotifier
	executor    *Executor
	logger      *zap.Logger
}

// NewService creates the chat orchestrator. facts, routines and notifier are
// optional; a nil value disables the corresponding best-effort pass.
func NewService(store Store, interpreter Interpreter, conflicts ConflictDetector, facts FactExtractor, routines RoutineSource, notifier RoutineNotifier, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		interpreter: interpreter,
		facts:       facts,
		routines:    routines,
		notifier:    notifier,
		executor:    NewExecutor(store, conflicts, logger),
		logger:      logger,
	}
}

// Process handles one chat message for a user and returns the AI's reply
// plus one result per proposed action, in plan order. Image is optional;
// message emptiness is validated upstream.
func (s *Service) Process(ctx context.Context, user *models.User, message string, image []byte, imageMIME string) (*Response, error) {
	start := time.Now()

	habits, err := s.store.FindActiveHabits(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load habits: %w", err)
	}
	tags, err := s.store.FindTags(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	facts, err := s.store.FindFacts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	patterns := s.fetchPatterns(ctx, user)

	plan, err := s.interpreter.Interpret(ctx, &InterpretRequest{
		Message:   message,
		Image:     image,
		ImageMIME: imageMIME,
		Habits:    habits,
		Tags:      tags,
		Facts:     facts,
		Patterns:  patterns,
	})
	if err != nil {
		s.logger.Error("interpretation_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrInterpretation, err)
	}

	batch := s.store.NewBatch()
	results := make([]ActionResult, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		results = append(results, s.executeIsolated(ctx, user, action, patterns, batch))
	}

	staged := batch.Len()
	if staged > 0 {
		if err := batch.Commit(ctx); err != nil {
			s.logger.Error("chat_commit_failed",
				zap.String("user_id", user.ID.String()),
				zap.Int("staged_writes", staged),
				zap.Error(err),
			)
			// Nothing was persisted: downgrade every success so the caller
			// is not told about entities that do not exist.
			for i := range results {
				if results[i].Status == StatusSuccess {
					results[i].Status = StatusFailed
					results[i].EntityID = nil
					results[i].Conflict = nil
					results[i].Error = "Changes could not be saved"
				}
			}
			staged = 0
		}
	}

	// Enrichment passes run after the primary commit and never alter the
	// response on failure.
	s.extractFacts(ctx, user, message, plan.Message, facts)
	if staged > 0 {
		s.notifyRoutineChange(ctx, user)
	}

	s.logger.Info("chat_processed",
		zap.String("user_id", user.ID.String()),
		zap.Int("action_count", len(plan.Actions)),
		zap.Int("staged_writes", staged),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return &Response{Message: plan.Message, Results: results}, nil
}

// executeIsolated guards one action's execution: a panic inside a single
// action becomes a generic Failed result and execution continues with the
// next action.
func (s *Service) executeIsolated(ctx context.Context, user *models.User, action Action, patterns []models.RoutinePattern, batch Batch) (result ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("action_panicked",
				zap.String("user_id", user.ID.String()),
				zap.String("action_type", string(action.Type())),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result = ActionResult{
				Type:   action.Type(),
				Status: StatusFailed,
				Error:  "The action could not be completed",
			}
		}
	}()
	return s.executor.Execute(ctx, user, action, patterns, batch)
}
