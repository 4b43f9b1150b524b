package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/queue"
	"github.com/kmettler/habitloop/internal/services/chat"
)

// DefaultDebounce spaces out analysis runs when a user logs several habits in
// quick succession
const DefaultDebounce = 2 * time.Minute

// RoutineEnqueuer publishes a routine analysis job whenever a user's habits
// or logs change. The job is debounced via NotBefore so bursts of activity
// collapse into one recomputation.
type RoutineEnqueuer struct {
	jobQueue queue.JobQueue
	debounce time.Duration
}

// NewRoutineEnqueuer creates a new routine enqueuer
func NewRoutineEnqueuer(jobQueue queue.JobQueue, debounce time.Duration) *RoutineEnqueuer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &RoutineEnqueuer{jobQueue: jobQueue, debounce: debounce}
}

// HabitActivity enqueues a debounced routine analysis job for the user
func (e *RoutineEnqueuer) HabitActivity(ctx context.Context, userID uuid.UUID) error {
	job := queue.NewJob(queue.JobTypeRoutineAnalysis, userID, nil)
	notBefore := time.Now().Add(e.debounce)
	job.NotBefore = &notBefore

	if err := e.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue routine analysis: %w", err)
	}
	return nil
}

var _ chat.RoutineNotifier = (*RoutineEnqueuer)(nil)
