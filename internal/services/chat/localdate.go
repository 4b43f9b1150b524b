package chat

import (
	"time"

	"github.com/kmettler/habitloop/internal/models"
)

// LocalDate resolves "today" for a user: the current calendar date in the
// user's configured timezone, falling back to UTC when no timezone is set or
// the configured name does not resolve. The returned time is midnight UTC of
// that calendar date, suitable for formatting with models.LogDateFormat.
func LocalDate(user *models.User, now time.Time) time.Time {
	loc := time.UTC
	if user != nil && user.Timezone != nil && *user.Timezone != "" {
		if l, err := time.LoadLocation(*user.Timezone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
