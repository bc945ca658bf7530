package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lettercast/campaign-engine/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, map[string]string{"code": code, "error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes and
// machine-readable error codes. All mapping lives here so individual
// handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrAlreadySending):
		respondError(w, http.StatusConflict, "already_sending", err.Error())
	case errors.Is(err, domain.ErrAlreadySent):
		respondError(w, http.StatusConflict, "already_sent", err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		respondError(w, http.StatusConflict, "invalid_status", err.Error())
	case errors.Is(err, domain.ErrNoSubscribers):
		respondError(w, http.StatusUnprocessableEntity, "no_subscribers", err.Error())
	case errors.Is(err, domain.ErrScheduleInPast):
		respondError(w, http.StatusUnprocessableEntity, "invalid_schedule", err.Error())
	case errors.Is(err, domain.ErrInvalidEmail):
		respondError(w, http.StatusUnprocessableEntity, "invalid_email", err.Error())
	case errors.Is(err, domain.ErrInvalidSubject),
		errors.Is(err, domain.ErrInvalidContent):
		respondError(w, http.StatusUnprocessableEntity, "invalid_campaign", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
