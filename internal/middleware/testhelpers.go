package middleware

import (
	"context"

	"github.com/kmettler/habitloop/internal/models"
)

// SetUserInContext injects a user the way Auth would. Handler tests in other
// packages use it to simulate an authenticated request.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
