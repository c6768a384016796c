package handlers

import (
	"errors"
	"net/http"

	"giveaway/internal/models"
)

// mapError converts a core error into an HTTP status and a stable error
// code the dispatcher can branch on without string matching.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, models.ErrNoActiveDraw):
		return http.StatusNotFound, "no_active_draw"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrNoParticipants):
		return http.StatusUnprocessableEntity, "no_participants"
	case errors.Is(err, models.ErrAlreadyJoined):
		return http.StatusConflict, "already_joined"
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
