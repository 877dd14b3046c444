package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"taskfortime/internal/service"
	"taskfortime/internal/validation"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, map[string]string{"error": userMsg})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

// respondServiceError maps the service layer's sentinel errors onto HTTP
// statuses so handlers don't repeat the same switch
func respondServiceError(w http.ResponseWriter, err error) {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, vErr.Error(), "", nil)
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrChildNotFound),
		errors.Is(err, service.ErrRewardNotFound),
		errors.Is(err, service.ErrGoalNotFound),
		errors.Is(err, service.ErrQuestNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrTaskConflict):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, service.ErrInsufficientFunds):
		respondWithError(w, http.StatusPaymentRequired, err.Error(), "", nil)
	case errors.Is(err, service.ErrNotAllowed), errors.Is(err, service.ErrNotFamilyMember):
		respondWithError(w, http.StatusForbidden, ErrForbidden, "", err)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidPIN):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidFamilyCode),
		errors.Is(err, service.ErrInvalidAmount):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "request failed", err)
	}
}
