package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/config"
	"github.com/kmettler/habitloop/internal/queue"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var userIDStr string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Enqueue a routine analysis job for a user",
		Long:  "Force routine pattern recomputation by enqueueing an analysis job, bypassing the usual debounce",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userIDStr == "" {
				return fmt.Errorf("--user is required")
			}
			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ: %v\n", err)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			job := queue.NewJob(queue.JobTypeRoutineAnalysis, userID, nil)
			if err := jobQueue.Enqueue(ctx, job); err != nil {
				return fmt.Errorf("failed to enqueue job: %w", err)
			}

			fmt.Printf("✓ Enqueued routine analysis job %s for user %s\n", job.ID, userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userIDStr, "user", "", "User ID to analyze (required)")

	return cmd
}
