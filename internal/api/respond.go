package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind domain.ErrorKind, msg string, details ...string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: string(kind), Details: details})
}

// writeDomainError maps err onto a status code by its kind.
func writeDomainError(w http.ResponseWriter, err error) {
	de := domain.AsError(err)
	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "kind", de.Kind, "error", err)
	}
	writeError(w, status, de.Kind, de.Message, de.Details...)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindParse, domain.KindShapeMismatch, domain.KindInvalidRequest:
		return http.StatusBadRequest
	case domain.KindDegenerateGroundTruth:
		return http.StatusUnprocessableEntity
	case domain.KindSizeLimit:
		return http.StatusRequestEntityTooLarge
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
