package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/models"
)

func TestNormalizeFactText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Prefers Mornings", "prefers mornings"},
		{"  prefers mornings\t", "prefers mornings"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeFactText(tt.in); got != tt.want {
			t.Errorf("NormalizeFactText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupeFactCandidates(t *testing.T) {
	t.Parallel()

	deleted := time.Now()
	known := []*models.UserFact{
		{ID: uuid.New(), Text: "Prefers mornings", Category: models.FactCategorySchedule},
		{ID: uuid.New(), Text: "hates running", Category: models.FactCategoryPreference, DeletedAt: &deleted},
	}

	candidates := []FactCandidate{
		{Text: "prefers mornings", Category: models.FactCategorySchedule},   // dup of known
		{Text: "  PREFERS MORNINGS ", Category: models.FactCategoryOther},   // dup after normalization
		{Text: "hates running", Category: models.FactCategoryPreference},    // known fact was deleted, relearnable
		{Text: "works night shifts", Category: models.FactCategorySchedule}, // new
		{Text: "Works Night Shifts", Category: models.FactCategorySchedule}, // dup within batch
		{Text: "", Category: models.FactCategoryGoal},                       // empty
		{Text: "lives near a park", Category: "vibes"},                      // bogus category
	}

	accepted := DedupeFactCandidates(candidates, known)

	if len(accepted) != 3 {
		t.Fatalf("accepted = %d, want 3: %+v", len(accepted), accepted)
	}
	if accepted[0].Text != "hates running" {
		t.Errorf("accepted[0] = %q, want the relearned deleted fact", accepted[0].Text)
	}
	if accepted[1].Text != "works night shifts" {
		t.Errorf("accepted[1] = %q", accepted[1].Text)
	}
	if accepted[2].Category != models.FactCategoryOther {
		t.Errorf("bogus category = %q, want normalized to other", accepted[2].Category)
	}
}

func TestDedupeFactCandidates_Empty(t *testing.T) {
	t.Parallel()

	if got := DedupeFactCandidates(nil, nil); len(got) != 0 {
		t.Errorf("DedupeFactCandidates(nil, nil) = %v", got)
	}
}
