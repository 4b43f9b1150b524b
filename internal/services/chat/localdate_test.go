package chat

import (
	"testing"
	"time"

	"github.com/kmettler/habitloop/internal/models"
)

func TestLocalDate(t *testing.T) {
	t.Parallel()

	// 23:30 UTC on Jan 1
	now := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		timezone *string
		want     string
	}{
		{"no timezone falls back to UTC", nil, "2026-01-01"},
		{"empty timezone falls back to UTC", strPtr(""), "2026-01-01"},
		{"unresolvable timezone falls back to UTC", strPtr("Mars/Olympus_Mons"), "2026-01-01"},
		{"ahead of UTC", strPtr("Pacific/Auckland"), "2026-01-02"},
		{"behind UTC", strPtr("America/Los_Angeles"), "2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := &models.User{Timezone: tt.timezone}
			got := LocalDate(user, now).Format(models.LogDateFormat)
			if got != tt.want {
				t.Errorf("LocalDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLocalDate_NilUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	got := LocalDate(nil, now)
	if got.Format(models.LogDateFormat) != "2026-06-15" {
		t.Errorf("LocalDate(nil) = %s", got.Format(models.LogDateFormat))
	}
}

func TestLocalDate_ReturnsMidnightUTC(t *testing.T) {
	t.Parallel()

	tz := "Europe/Berlin"
	user := &models.User{Timezone: &tz}
	got := LocalDate(user, time.Date(2026, 3, 10, 14, 45, 12, 0, time.UTC))

	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("LocalDate() = %v, want midnight", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("Location = %v, want UTC", got.Location())
	}
}
