package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	habitID := uuid.New()

	job := NewJob(JobTypeRoutineAnalysis, userID, &habitID)

	if job.ID == uuid.Nil {
		t.Error("job ID not set")
	}
	if job.Type != JobTypeRoutineAnalysis {
		t.Errorf("type = %s", job.Type)
	}
	if job.UserID != userID {
		t.Errorf("user ID = %s, want %s", job.UserID, userID)
	}
	if job.HabitID == nil || *job.HabitID != habitID {
		t.Errorf("habit ID = %v, want %s", job.HabitID, habitID)
	}
	if job.Metadata == nil {
		t.Error("metadata not initialized")
	}
	if job.RetryCount != 0 || job.MaxRetries != 3 {
		t.Errorf("retries = %d/%d, want 0/3", job.RetryCount, job.MaxRetries)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := timePtr(now.Add(-time.Hour))
	future := timePtr(now.Add(time.Hour))
	farFuture := timePtr(now.Add(2 * time.Hour))
	farPast := timePtr(now.Add(-2 * time.Hour))

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{"no constraints", nil, nil, true},
		{"not-before already passed", past, nil, true},
		{"not-before still ahead", future, nil, false},
		{"not-after already passed", nil, past, false},
		{"not-after still ahead", nil, future, true},
		{"inside window", past, future, true},
		{"window not open yet", future, farFuture, false},
		{"window already closed", farPast, past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := &Job{ID: uuid.New(), Type: JobTypeRoutineAnalysis, NotBefore: tt.notBefore, NotAfter: tt.notAfter}
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name     string
		notAfter *time.Time
		want     bool
	}{
		{"no expiration", nil, false},
		{"expired", timePtr(now.Add(-time.Hour)), true},
		{"not expired", timePtr(now.Add(time.Hour)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := &Job{ID: uuid.New(), NotAfter: tt.notAfter}
			if got := job.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_Retries(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeRoutineAnalysis, uuid.New(), nil)

	for attempt := 0; attempt < job.MaxRetries; attempt++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false at attempt %d of %d", attempt, job.MaxRetries)
		}
		job.IncrementRetry()
	}

	if job.RetryCount != job.MaxRetries {
		t.Errorf("retry count = %d, want %d", job.RetryCount, job.MaxRetries)
	}
	if job.CanRetry() {
		t.Error("CanRetry() = true after exhausting retries")
	}
}
