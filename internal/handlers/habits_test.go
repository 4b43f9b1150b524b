package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/chat"
	"go.uber.org/zap"
)

type fakeHabitRepo struct {
	habits    map[uuid.UUID]*models.Habit
	logs      []*models.HabitLog
	archived  []uuid.UUID
	listErr   error
	createErr error
	updateErr error
}

func newFakeHabitRepo() *fakeHabitRepo {
	return &fakeHabitRepo{habits: make(map[uuid.UUID]*models.Habit)}
}

func (f *fakeHabitRepo) Create(ctx context.Context, habit *models.Habit) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.habits[habit.ID] = habit
	return nil
}

func (f *fakeHabitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	habit, ok := f.habits[id]
	if !ok {
		return nil, errors.New("habit not found")
	}
	return habit, nil
}

func (f *fakeHabitRepo) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Habit
	for _, habit := range f.habits {
		if habit.UserID == userID && !habit.Archived {
			out = append(out, habit)
		}
	}
	return out, nil
}

func (f *fakeHabitRepo) Update(ctx context.Context, habit *models.Habit) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.habits[habit.ID] = habit
	return nil
}

func (f *fakeHabitRepo) Archive(ctx context.Context, id uuid.UUID) error {
	f.archived = append(f.archived, id)
	if habit, ok := f.habits[id]; ok {
		habit.Archived = true
	}
	return nil
}

func (f *fakeHabitRepo) CreateLog(ctx context.Context, log *models.HabitLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeHabitRepo) RecentLogs(ctx context.Context, userID uuid.UUID, since time.Time) ([]database.HabitLogRow, error) {
	return nil, nil
}

type recordingNotifier struct {
	calls int
}

func (n *recordingNotifier) HabitActivity(ctx context.Context, userID uuid.UUID) error {
	n.calls++
	return nil
}

func habitTestRouter(repo *fakeHabitRepo, notifier *recordingNotifier) *mux.Router {
	var n chat.RoutineNotifier
	if notifier != nil {
		n = notifier
	}
	h := NewHabitHandler(repo, n, zap.NewNop())
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/habits").Subrouter())
	return r
}

func authedRequest(method, path, body string, user *models.User) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(middleware.SetUserInContext(req.Context(), user))
	}
	return req
}

func TestCreateHabit(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"minimal", `{"title":"Meditate"}`, http.StatusCreated},
		{"full schedule", `{"title":"Run","frequency_unit":"weekly","frequency_quantity":3,"days_of_week":["monday","wednesday"],"due_date":"2026-12-01"}`, http.StatusCreated},
		{"missing title", `{"description":"no title"}`, http.StatusBadRequest},
		{"whitespace title", `{"title":"   "}`, http.StatusBadRequest},
		{"invalid frequency unit", `{"title":"Run","frequency_unit":"fortnightly"}`, http.StatusBadRequest},
		{"invalid day name", `{"title":"Run","days_of_week":["funday"]}`, http.StatusBadRequest},
		{"invalid due date", `{"title":"Run","due_date":"tomorrow"}`, http.StatusBadRequest},
		{"invalid parent id", `{"title":"Run","parent_id":"not-a-uuid"}`, http.StatusBadRequest},
		{"bad json", `{title`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeHabitRepo()
			router := habitTestRouter(repo, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(http.MethodPost, "/habits", tt.body, user))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusCreated && len(repo.habits) != 1 {
				t.Errorf("stored habits = %d, want 1", len(repo.habits))
			}
			if tt.wantStatus != http.StatusCreated && len(repo.habits) != 0 {
				t.Errorf("stored habits = %d, want 0 on rejection", len(repo.habits))
			}
		})
	}
}

func TestCreateHabit_WithParent(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	parent := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Get fit"}
	repo.habits[parent.ID] = parent

	notifier := &recordingNotifier{}
	router := habitTestRouter(repo, notifier)
	rec := httptest.NewRecorder()
	body := `{"title":"Stretch","parent_id":"` + parent.ID.String() + `"}`
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/habits", body, user))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var created *models.Habit
	for _, habit := range repo.habits {
		if habit.Title == "Stretch" {
			created = habit
		}
	}
	if created == nil || created.ParentID == nil || *created.ParentID != parent.ID {
		t.Errorf("sub-habit not linked to parent: %+v", created)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestCreateHabit_ForeignParentRejected(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	parent := &models.Habit{ID: uuid.New(), UserID: uuid.New(), Title: "Someone else's"}
	repo.habits[parent.ID] = parent

	router := habitTestRouter(repo, nil)
	rec := httptest.NewRecorder()
	body := `{"title":"Stretch","parent_id":"` + parent.ID.String() + `"}`
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/habits", body, user))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for another user's parent", rec.Code)
	}
}

func TestListHabits(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	mine := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Read"}
	archived := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Old", Archived: true}
	foreign := &models.Habit{ID: uuid.New(), UserID: uuid.New(), Title: "Not mine"}
	repo.habits[mine.ID] = mine
	repo.habits[archived.ID] = archived
	repo.habits[foreign.ID] = foreign

	router := habitTestRouter(repo, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/habits", "", user))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data []*models.Habit `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].Title != "Read" {
		t.Errorf("data = %+v, want only the active habit", env.Data)
	}
}

func TestListHabits_EmptyIsArrayNotNull(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	router := habitTestRouter(newFakeHabitRepo(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/habits", "", user))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty array", rec.Body.String())
	}
}

func TestGetHabit(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Read"}
	repo.habits[habit.ID] = habit
	router := habitTestRouter(repo, nil)

	tests := []struct {
		name       string
		id         string
		user       *models.User
		wantStatus int
	}{
		{"owned", habit.ID.String(), user, http.StatusOK},
		{"invalid id", "not-a-uuid", user, http.StatusBadRequest},
		{"unknown id", uuid.New().String(), user, http.StatusNotFound},
		{"foreign owner", habit.ID.String(), &models.User{ID: uuid.New()}, http.StatusForbidden},
		{"unauthenticated", habit.ID.String(), nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(http.MethodGet, "/habits/"+tt.id, "", tt.user))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestUpdateHabit(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Read"}
	repo.habits[habit.ID] = habit

	notifier := &recordingNotifier{}
	router := habitTestRouter(repo, notifier)
	rec := httptest.NewRecorder()
	body := `{"title":"Read daily","frequency_unit":"daily","is_bad_habit":false}`
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/habits/"+habit.ID.String(), body, user))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	updated := repo.habits[habit.ID]
	if updated.Title != "Read daily" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.FrequencyUnit == nil || *updated.FrequencyUnit != models.FrequencyDaily {
		t.Errorf("frequency unit = %v", updated.FrequencyUnit)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestUpdateHabit_EmptyTitleRejected(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Read"}
	repo.habits[habit.ID] = habit

	router := habitTestRouter(repo, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/habits/"+habit.ID.String(), `{"title":"  "}`, user))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if repo.habits[habit.ID].Title != "Read" {
		t.Errorf("title changed to %q", repo.habits[habit.ID].Title)
	}
}

func TestArchiveHabit(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Read"}
	repo.habits[habit.ID] = habit

	router := habitTestRouter(repo, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/habits/"+habit.ID.String(), "", user))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(repo.archived) != 1 || repo.archived[0] != habit.ID {
		t.Errorf("archived = %v", repo.archived)
	}
}

func TestLogHabit(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Run"}
	repo.habits[habit.ID] = habit

	notifier := &recordingNotifier{}
	router := habitTestRouter(repo, notifier)
	rec := httptest.NewRecorder()
	body := `{"date":"2026-08-30","note":"5k"}`
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/habits/"+habit.ID.String()+"/logs", body, user))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(repo.logs))
	}
	log := repo.logs[0]
	if log.LogDate != "2026-08-30" {
		t.Errorf("log date = %q", log.LogDate)
	}
	if log.Note == nil || *log.Note != "5k" {
		t.Errorf("note = %v", log.Note)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestLogHabit_DefaultsToUserLocalToday(t *testing.T) {
	t.Parallel()

	tz := "UTC"
	user := &models.User{ID: uuid.New(), Timezone: &tz}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Run"}
	repo.habits[habit.ID] = habit

	router := habitTestRouter(repo, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/habits/"+habit.ID.String()+"/logs", "", user))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	want := time.Now().UTC().Format(models.LogDateFormat)
	if len(repo.logs) != 1 || repo.logs[0].LogDate != want {
		t.Errorf("log date = %q, want %q", repo.logs[0].LogDate, want)
	}
}

func TestLogHabit_InvalidDate(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newFakeHabitRepo()
	habit := &models.Habit{ID: uuid.New(), UserID: user.ID, Title: "Run"}
	repo.habits[habit.ID] = habit

	router := habitTestRouter(repo, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/habits/"+habit.ID.String()+"/logs", `{"date":"yesterday"}`, user))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(repo.logs) != 0 {
		t.Errorf("logs = %d, want 0", len(repo.logs))
	}
}
