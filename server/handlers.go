package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/auth"
	"github.com/giftwish/giftwish/gifts"
	"github.com/giftwish/giftwish/tags"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed encoding response")
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

// decodeBodyInto is the lenient variant used where an unreadable body is not
// an error, such as logout.
func decodeBodyInto(r *http.Request, into any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(into)
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become an
// opaque 500 so internals never leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, auth.ErrInvalidCode), errors.Is(err, auth.ErrExpiredCode),
		errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrNoCredentials):
		status, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrInsufficientPermissions):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, gifts.ErrValidation), errors.Is(err, tags.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, gifts.ErrGiftNotFound), errors.Is(err, tags.ErrTagNotFound), errors.Is(err, gifts.ErrNotReserved):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, gifts.ErrAlreadyReserved), errors.Is(err, tags.ErrDuplicateTag):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, gifts.ErrNotReservationOwner), errors.Is(err, gifts.ErrNotClaimable):
		status, message = http.StatusForbidden, err.Error()
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: message})
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyHandler reports readiness, including database connectivity when one
// is wired.
func (s *Server) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.dbPing != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.dbPing(ctx); err != nil {
				s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
