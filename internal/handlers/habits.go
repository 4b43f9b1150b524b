package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/chat"
	"github.com/kmettler/habitloop/internal/validation"
	"go.uber.org/zap"
)

const (
	// MaxHabitTitleLength is the maximum length for a habit title
	MaxHabitTitleLength = 500
	// MaxHabitDescriptionLength is the maximum length for a habit description
	MaxHabitDescriptionLength = 5000
)

// HabitHandler handles habit-related requests
type HabitHandler struct {
	habitRepo database.HabitRepositoryInterface
	notifier  chat.RoutineNotifier // optional, nil disables routine recomputation
	logger    *zap.Logger
}

// NewHabitHandler creates a new habit handler
func NewHabitHandler(habitRepo database.HabitRepositoryInterface, notifier chat.RoutineNotifier, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{habitRepo: habitRepo, notifier: notifier, logger: logger}
}

// RegisterRoutes registers habit routes on the given router
// The router should already have the /habits prefix
func (h *HabitHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListHabits).Methods("GET")
	r.HandleFunc("", h.CreateHabit).Methods("POST")
	r.HandleFunc("/{id}", h.GetHabit).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateHabit).Methods("PATCH")
	r.HandleFunc("/{id}", h.ArchiveHabit).Methods("DELETE")
	r.HandleFunc("/{id}/logs", h.LogHabit).Methods("POST")
}

// CreateHabitRequest represents a create habit request
type CreateHabitRequest struct {
	Title             string   `json:"title" validate:"required,min=1,max=500"`
	Description       *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	ParentID          *string  `json:"parent_id,omitempty"`
	FrequencyUnit     *string  `json:"frequency_unit,omitempty" validate:"omitempty,frequency_unit"`
	FrequencyQuantity *int     `json:"frequency_quantity,omitempty" validate:"omitempty,min=1,max=100"`
	DaysOfWeek        []string `json:"days_of_week,omitempty"`
	IsBadHabit        bool     `json:"is_bad_habit"`
	DueDate           *string  `json:"due_date,omitempty"`
}

// UpdateHabitRequest represents an update habit request
type UpdateHabitRequest struct {
	Title             *string  `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description       *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	FrequencyUnit     *string  `json:"frequency_unit,omitempty" validate:"omitempty,frequency_unit"`
	FrequencyQuantity *int     `json:"frequency_quantity,omitempty" validate:"omitempty,min=1,max=100"`
	DaysOfWeek        []string `json:"days_of_week,omitempty"`
	IsBadHabit        *bool    `json:"is_bad_habit,omitempty"`
	DueDate           *string  `json:"due_date,omitempty"`
}

// LogHabitRequest represents a manual habit log request
type LogHabitRequest struct {
	Date *string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Note *string `json:"note,omitempty" validate:"omitempty,max=5000"`
}

// ListHabits lists the authenticated user's non-archived habits
func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habits, err := h.habitRepo.GetActiveByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve habits")
		return
	}
	if habits == nil {
		habits = []*models.Habit{}
	}

	respondJSON(w, http.StatusOK, habits)
}

// CreateHabit creates a new habit
func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	title := validation.SanitizeText(req.Title)
	if title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required")
		return
	}

	ctx := r.Context()
	habit := &models.Habit{
		ID:                uuid.New(),
		UserID:            user.ID,
		Title:             title,
		Description:       req.Description,
		FrequencyQuantity: req.FrequencyQuantity,
		IsBadHabit:        req.IsBadHabit,
	}

	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid parent_id")
			return
		}
		parent, err := h.habitRepo.GetByID(ctx, parentID)
		if err != nil || parent.UserID != user.ID {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Parent habit not found")
			return
		}
		habit.ParentID = &parentID
	}

	if req.FrequencyUnit != nil {
		unit := models.FrequencyUnit(strings.ToLower(*req.FrequencyUnit))
		habit.FrequencyUnit = &unit
	}

	days, err := parseDaysOfWeek(req.DaysOfWeek)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	habit.DaysOfWeek = days

	if req.DueDate != nil {
		due, err := parseDateField(*req.DueDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
			return
		}
		habit.DueDate = &due
	}

	if err := h.habitRepo.Create(ctx, habit); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create habit")
		return
	}

	h.notifyActivity(r, user.ID)
	respondJSON(w, http.StatusCreated, habit)
}

// GetHabit retrieves a habit by ID
func (h *HabitHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit, ok := h.loadOwnedHabit(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, habit)
}

// UpdateHabit updates an existing habit
func (h *HabitHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit, ok := h.loadOwnedHabit(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		habit.Title = title
	}
	if req.Description != nil {
		habit.Description = req.Description
	}
	if req.FrequencyUnit != nil {
		unit := models.FrequencyUnit(strings.ToLower(*req.FrequencyUnit))
		habit.FrequencyUnit = &unit
	}
	if req.FrequencyQuantity != nil {
		habit.FrequencyQuantity = req.FrequencyQuantity
	}
	if req.DaysOfWeek != nil {
		days, err := parseDaysOfWeek(req.DaysOfWeek)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		habit.DaysOfWeek = days
	}
	if req.IsBadHabit != nil {
		habit.IsBadHabit = *req.IsBadHabit
	}
	if req.DueDate != nil {
		due, err := parseDateField(*req.DueDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
			return
		}
		habit.DueDate = &due
	}

	if err := h.habitRepo.Update(r.Context(), habit); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update habit")
		return
	}

	h.notifyActivity(r, user.ID)
	respondJSON(w, http.StatusOK, habit)
}

// ArchiveHabit archives a habit. Archived habits keep their logs but drop out
// of listings and chat context.
func (h *HabitHandler) ArchiveHabit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit, ok := h.loadOwnedHabit(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.habitRepo.Archive(r.Context(), habit.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to archive habit")
		return
	}

	h.notifyActivity(r, user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// LogHabit records a completion for a habit
func (h *HabitHandler) LogHabit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit, ok := h.loadOwnedHabit(w, r, user.ID)
	if !ok {
		return
	}

	var req LogHabitRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
	}

	date := chat.LocalDate(user, time.Now())
	if req.Date != nil {
		parsed, err := time.Parse(models.LogDateFormat, *req.Date)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result := habit.Log(date, req.Note)
	if err := h.habitRepo.CreateLog(r.Context(), result.Log); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to log habit")
		return
	}

	h.notifyActivity(r, user.ID)
	respondJSON(w, http.StatusCreated, result)
}

// loadOwnedHabit parses the id path variable, loads the habit, and verifies
// ownership. On failure it writes the error response and returns false.
func (h *HabitHandler) loadOwnedHabit(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Habit, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return nil, false
	}

	habit, err := h.habitRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Habit not found")
		return nil, false
	}

	if habit.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Habit does not belong to user")
		return nil, false
	}

	return habit, true
}

// notifyActivity signals the routine analyzer that habits changed. Best
// effort: failures are logged, never surfaced.
func (h *HabitHandler) notifyActivity(r *http.Request, userID uuid.UUID) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.HabitActivity(r.Context(), userID); err != nil {
		h.logger.Warn("routine_notify_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func parseDaysOfWeek(names []string) ([]time.Weekday, error) {
	if len(names) == 0 {
		return nil, nil
	}

	weekdays := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}

	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("invalid day_of_week: %s", name)
		}
		days = append(days, day)
	}
	return days, nil
}

// parseDateField accepts either a bare date or a full RFC3339 timestamp
func parseDateField(s string) (time.Time, error) {
	if t, err := time.Parse(models.LogDateFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
