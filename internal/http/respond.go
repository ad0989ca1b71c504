package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/provider/rest"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code       string           `json:"code"`
	Message    string           `json:"message"`
	Candidates []core.Candidate `json:"candidates,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, dataEnvelope{Data: v})
}

func writeError(w http.ResponseWriter, status int, code, message string, candidates []core.Candidate) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:       code,
		Message:    message,
		Candidates: candidates,
	}})
}

// respondError maps domain errors onto HTTP statuses in one place so
// handlers stay thin.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ambiguous *core.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		writeError(w, http.StatusConflict, "ambiguous", ambiguous.Error(), ambiguous.Candidates)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, core.ErrStaleReference):
		writeError(w, http.StatusConflict, "stale_reference", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidDate):
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", err.Error(), nil)
	case errors.Is(err, core.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error(), nil)
	case errors.Is(err, rest.ErrUnauthorized), errors.Is(err, rest.ErrRateLimited):
		s.logger.ErrorContext(r.Context(), "provider error", log.FieldError, err)
		writeError(w, http.StatusBadGateway, "provider_unavailable", "budget provider unavailable", nil)
	default:
		s.logger.ErrorContext(r.Context(), "request failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

// respondDecodeError distinguishes malformed JSON from well-formed
// bodies carrying invalid dates or amounts.
func (s *Server) respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrInvalidDate) || errors.Is(err, core.ErrInvalidAmount) {
		s.respondError(w, r, err)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}
