package workers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/queue"
	"go.uber.org/zap"
)

const (
	// AnalysisWindow is how far back logs are considered for pattern inference
	AnalysisWindow = 28 * 24 * time.Hour
	// MinOccurrences is the minimum number of logs before a habit yields a pattern
	MinOccurrences = 3
	// weekdayThreshold is the share of logs a weekday needs to count as part
	// of the pattern
	weekdayThreshold = 0.25
)

// PatternStore is where inferred patterns are published for the chat pipeline
type PatternStore interface {
	Store(ctx context.Context, userID uuid.UUID, patterns []models.RoutinePattern) error
}

// RoutineAnalyzer processes routine analysis jobs: it rereads a user's recent
// habit logs, infers recurring patterns, and publishes them to the cache.
type RoutineAnalyzer struct {
	habitRepo database.HabitRepositoryInterface
	patterns  PatternStore
	jobQueue  queue.JobQueue // For re-enqueueing jobs with delays
	logger    *zap.Logger
}

// NewRoutineAnalyzer creates a new routine analyzer
func NewRoutineAnalyzer(habitRepo database.HabitRepositoryInterface, patterns PatternStore, jobQueue queue.JobQueue, logger *zap.Logger) *RoutineAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutineAnalyzer{
		habitRepo: habitRepo,
		patterns:  patterns,
		jobQueue:  jobQueue,
		logger:    logger,
	}
}

// ProcessRoutineAnalysisJob recomputes and stores one user's routine patterns
func (a *RoutineAnalyzer) ProcessRoutineAnalysisJob(ctx context.Context, job *queue.Job) error {
	since := time.Now().Add(-AnalysisWindow)
	entries, err := a.habitRepo.RecentLogs(ctx, job.UserID, since)
	if err != nil {
		return fmt.Errorf("failed to load recent logs: %w", err)
	}

	patterns := InferPatterns(entries)

	if err := a.patterns.Store(ctx, job.UserID, patterns); err != nil {
		return fmt.Errorf("failed to store patterns: %w", err)
	}

	a.logger.Info("routine_patterns_updated",
		zap.String("user_id", job.UserID.String()),
		zap.Int("log_count", len(entries)),
		zap.Int("pattern_count", len(patterns)),
	)
	return nil
}

// InferPatterns derives routine patterns from joined habit log rows. A habit
// needs at least MinOccurrences logs in the window; the time bucket is the
// one most of its logs fall into, and weekdays are kept when they carry at
// least a quarter of the logs.
func InferPatterns(entries []database.HabitLogRow) []models.RoutinePattern {
	type habitStats struct {
		title       string
		unit        *models.FrequencyUnit
		total       int
		weekdays    [7]int
		timeBuckets map[models.TimeBucket]int
		firstSeen   int
	}

	stats := make(map[uuid.UUID]*habitStats)
	order := 0
	for _, entry := range entries {
		s, ok := stats[entry.HabitID]
		if !ok {
			s = &habitStats{
				title:       entry.HabitTitle,
				unit:        entry.FrequencyUnit,
				timeBuckets: make(map[models.TimeBucket]int),
				firstSeen:   order,
			}
			stats[entry.HabitID] = s
			order++
		}
		s.total++
		s.timeBuckets[bucketFor(entry.LoggedAt)]++
		if day, err := time.Parse(models.LogDateFormat, entry.LogDate); err == nil {
			s.weekdays[day.Weekday()]++
		}
	}

	ids := make([]uuid.UUID, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats[ids[i]].firstSeen < stats[ids[j]].firstSeen
	})

	var patterns []models.RoutinePattern
	for _, id := range ids {
		s := stats[id]
		if s.total < MinOccurrences {
			continue
		}

		pattern := models.RoutinePattern{
			HabitID:       id,
			HabitTitle:    s.title,
			TimeBucket:    dominantBucket(s.timeBuckets),
			FrequencyUnit: s.unit,
			Occurrences:   s.total,
		}
		for day := time.Sunday; day <= time.Saturday; day++ {
			if float64(s.weekdays[day]) >= weekdayThreshold*float64(s.total) {
				pattern.Weekdays = append(pattern.Weekdays, day)
			}
		}
		patterns = append(patterns, pattern)
	}

	return patterns
}

func bucketFor(t time.Time) models.TimeBucket {
	switch hour := t.Hour(); {
	case hour < 12:
		return models.TimeBucketMorning
	case hour < 18:
		return models.TimeBucketAfternoon
	default:
		return models.TimeBucketEvening
	}
}

func dominantBucket(counts map[models.TimeBucket]int) models.TimeBucket {
	best := models.TimeBucketMorning
	bestCount := -1
	// fixed iteration order keeps ties deterministic
	for _, bucket := range []models.TimeBucket{models.TimeBucketMorning, models.TimeBucketAfternoon, models.TimeBucketEvening} {
		if counts[bucket] > bestCount {
			best = bucket
			bestCount = counts[bucket]
		}
	}
	return best
}

// ProcessJob processes a job based on its type
func (a *RoutineAnalyzer) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	switch job.Type {
	case queue.JobTypeRoutineAnalysis:
		if err := a.ProcessRoutineAnalysisJob(ctx, job); err != nil {
			return a.handleJobError(msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			a.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries failed jobs until MaxRetries, then dead-letters them
func (a *RoutineAnalyzer) handleJobError(msg *queue.Message, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		a.logger.Warn("routine_analysis_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			a.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	a.logger.Error("routine_analysis_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		a.logger.Warn("nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
