package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/oidc"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Auth creates authentication middleware that validates bearer JWT tokens
// and loads (or provisions) the matching user record.
func Auth(db *database.DB, verifier *oidc.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, parts[1])
			if err != nil {
				logger.Warn("token_verification_failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userRepo := database.NewUserRepository(db)
			user, err := userRepo.GetByProviderID(ctx, claims.Sub)
			if err != nil {
				// The repository wraps sql.ErrNoRows, so errors.Is will unwrap and check
				if errors.Is(err, sql.ErrNoRows) {
					user = &models.User{
						ID:            uuid.New(),
						Email:         claims.Email,
						ProviderID:    &claims.Sub,
						EmailVerified: true,
					}
					if claims.Name != "" {
						name := claims.Name
						user.Name = &name
					}
					if claims.Zoneinfo != "" {
						tz := claims.Zoneinfo
						user.Timezone = &tz
					}
					if err := userRepo.Create(ctx, user); err != nil {
						logger.Error("user_provisioning_failed", zap.Error(err))
						respondError(w, http.StatusInternalServerError, "Failed to create user")
						return
					}
				} else {
					logger.Error("user_lookup_failed", zap.Error(err))
					respondError(w, http.StatusInternalServerError, "Database error")
					return
				}
			} else {
				// Keep profile fields in sync with the token
				updateNeeded := false
				if claims.Email != "" && user.Email != claims.Email {
					user.Email = claims.Email
					updateNeeded = true
				}
				if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
					name := claims.Name
					user.Name = &name
					updateNeeded = true
				}
				if claims.Zoneinfo != "" && (user.Timezone == nil || *user.Timezone != claims.Zoneinfo) {
					tz := claims.Zoneinfo
					user.Timezone = &tz
					updateNeeded = true
				}
				if updateNeeded {
					if err := userRepo.Update(ctx, user); err != nil {
						logger.Warn("user_profile_sync_failed", zap.Error(err))
					}
				}
			}

			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
