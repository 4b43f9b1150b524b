package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("user present", func(t *testing.T) {
		t.Parallel()

		want := &models.User{ID: uuid.New(), Email: "test@example.com"}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(SetUserInContext(req.Context(), want))

		got := UserFromContext(req)
		if got == nil || got.ID != want.ID {
			t.Errorf("UserFromContext() = %+v, want %+v", got, want)
		}
	})

	t.Run("no user", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if got := UserFromContext(req); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil", got)
		}
	})

	t.Run("wrong type under key", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), userContextKey, "not a user"))
		if got := UserFromContext(req); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil on type mismatch", got)
		}
	})
}
