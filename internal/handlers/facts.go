package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/models"
)

// FactHandler exposes the facts the assistant has learned about a user.
// Facts are created by the chat pipeline only; the API lets users review
// and delete them.
type FactHandler struct {
	factRepo database.FactRepositoryInterface
}

// NewFactHandler creates a new fact handler
func NewFactHandler(factRepo database.FactRepositoryInterface) *FactHandler {
	return &FactHandler{factRepo: factRepo}
}

// RegisterRoutes registers fact routes on the given router
// The router should already have the /facts prefix
func (h *FactHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListFacts).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteFact).Methods("DELETE")
}

// ListFacts lists the authenticated user's non-deleted facts
func (h *FactHandler) ListFacts(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	facts, err := h.factRepo.GetActiveByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve facts")
		return
	}
	if facts == nil {
		facts = []*models.UserFact{}
	}

	respondJSON(w, http.StatusOK, facts)
}

// DeleteFact soft-deletes a fact. Deleted facts stop appearing in chat
// context and no longer block re-learning the same fact.
func (h *FactHandler) DeleteFact(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid fact ID")
		return
	}

	if err := h.factRepo.SoftDelete(r.Context(), id, user.ID); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Fact not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
