package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/validation"
)

// TagHandler handles tag-related requests
type TagHandler struct {
	tagRepo database.TagRepositoryInterface
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagRepo database.TagRepositoryInterface) *TagHandler {
	return &TagHandler{tagRepo: tagRepo}
}

// RegisterRoutes registers tag routes on the given router
// The router should already have the /tags prefix
func (h *TagHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTags).Methods("GET")
	r.HandleFunc("", h.CreateTag).Methods("POST")
}

// CreateTagRequest represents a create tag request
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// ListTags lists the authenticated user's tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	tags, err := h.tagRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tags")
		return
	}
	if tags == nil {
		tags = []*models.Tag{}
	}

	respondJSON(w, http.StatusOK, tags)
}

// CreateTag creates a new tag
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTagRequest
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

	name := validation.SanitizeText(req.Name)
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required")
		return
	}

	tag := &models.Tag{
		ID:     uuid.New(),
		UserID: user.ID,
		Name:   name,
	}

	if err := h.tagRepo.Create(r.Context(), tag); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create tag")
		return
	}

	respondJSON(w, http.StatusCreated, tag)
}
