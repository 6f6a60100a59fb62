package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/UnknownOlympus/hermes/internal/dashboard"
	"github.com/UnknownOlympus/hermes/internal/form"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/UnknownOlympus/hermes/internal/session"
	goccy_json "github.com/goccy/go-json"
)

var (
	errMissingToken = errors.New("missing session token")
	errBadRequest   = errors.New("malformed request")
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := goccy_json.Marshal(v)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to encode response", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(append(body, '\n')); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to write response", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingToken), errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest),
		errors.Is(err, form.ErrIncompleteDraft),
		errors.Is(err, models.ErrUnknownServiceType),
		errors.Is(err, models.ErrUnknownPersonnel):
		return http.StatusBadRequest
	case errors.Is(err, form.ErrGeocodeFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, form.ErrShipmentNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, form.ErrUpsertFailed), errors.Is(err, form.ErrDeleteFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the body and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()

	decoder := goccy_json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// sessionToken reads the bearer token, or the token query parameter that browsers
// must use for WebSocket upgrades.
func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

type dashboardHandler func(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard)

// withDashboard authenticates the request and resolves the caller's dashboard.
func (s *Server) withDashboard(next dashboardHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			s.writeError(w, r, errMissingToken)
			return
		}

		identity, err := s.bootstrap.Verify(token)
		if err != nil {
			s.log.DebugContext(r.Context(), "Rejected session token", "error", err)
			s.writeError(w, r, err)
			return
		}

		next(w, r, s.registry.GetOrOpen(r.Context(), identity))
	}
}

func parseCriteria(serviceType, personnel, term string) (models.FilterCriteria, error) {
	st, err := models.ParseServiceType(serviceType)
	if err != nil {
		return models.FilterCriteria{}, err
	}
	p, err := models.ParsePersonnel(personnel)
	if err != nil {
		return models.FilterCriteria{}, err
	}
	return models.FilterCriteria{ServiceType: st, Personnel: p, SearchTerm: term}, nil
}

func logger(r *http.Request, log *slog.Logger, d *dashboard.Dashboard) *slog.Logger {
	return log.With(slog.String("identity", d.Identity().ID), slog.String("path", r.URL.Path))
}
