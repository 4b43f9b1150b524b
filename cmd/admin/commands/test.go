package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kmettler/habitloop/internal/cache"
	"github.com/kmettler/habitloop/internal/config"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/queue"
	"github.com/kmettler/habitloop/internal/services/oidc"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test service dependencies",
		Long:  "Verify connectivity to Postgres, Redis, RabbitMQ and the JWKS endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()
			fmt.Println("✓ Postgres is reachable")

			routineCache, err := cache.NewRoutineCache(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}
			defer func() {
				if err := routineCache.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close Redis: %v\n", err)
				}
			}()
			fmt.Println("✓ Redis is reachable")

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ: %v\n", err)
				}
			}()
			if err := jobQueue.HealthCheck(ctx); err != nil {
				return fmt.Errorf("RabbitMQ health check failed: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			if cfg.JWTIssuer != "" {
				jwksURL := cfg.JWKSURL
				if jwksURL == "" {
					jwksURL, err = oidc.DiscoverJWKSURL(ctx, cfg.JWTIssuer)
					if err != nil {
						return fmt.Errorf("failed to discover JWKS URL: %w", err)
					}
				}

				fmt.Printf("Testing JWKS endpoint: %s\n", jwksURL)
				client := &http.Client{Timeout: 10 * time.Second}
				resp, err := client.Get(jwksURL)
				if err != nil {
					return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
				}
				defer func() {
					if err := resp.Body.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
					}
				}()
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("JWKS endpoint returned status: %d", resp.StatusCode)
				}
				fmt.Println("✓ JWKS endpoint is accessible")
			} else {
				fmt.Println("- JWT_ISSUER not set, skipping JWKS check")
			}

			fmt.Println("\n✓ All dependency checks passed")
			return nil
		},
	}

	return cmd
}
