package api

import (
	"net/http"

	"github.com/UnknownOlympus/hermes/internal/dashboard"
	"github.com/UnknownOlympus/hermes/internal/form"
	"github.com/UnknownOlympus/hermes/internal/mapview"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/session"
)

type sessionResponse struct {
	Token    string           `json:"token"`
	Identity session.Identity `json:"identity"`
}

type draftResponse struct {
	Draft models.Draft `json:"draft"`
	Mode  form.Mode    `json:"mode"`
}

type submitResponse struct {
	Shipment models.Shipment `json:"shipment"`
	Draft    models.Draft    `json:"draft"`
	Mode     form.Mode       `json:"mode"`
}

type filtersRequest struct {
	ServiceType string `json:"serviceType"`
	Personnel   string `json:"personnel"`
	SearchTerm  string `json:"searchTerm"`
}

// createSession returns the caller's identity, minting one when the presented token
// is missing or no longer valid, and opens its dashboard.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	identity, token, err := s.bootstrap.EnsureIdentity(r.Context(), sessionToken(r))
	if err != nil {
		s.log.ErrorContext(r.Context(), "Session bootstrap failed", "error", err)
		s.writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: "session bootstrap failed"})
		return
	}

	s.registry.GetOrOpen(r.Context(), identity)

	s.writeJSON(w, r, http.StatusOK, sessionResponse{Token: token, Identity: identity})
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	query := r.URL.Query()
	if query.Has("serviceType") || query.Has("personnel") || query.Has("q") {
		criteria, err := parseCriteria(query.Get("serviceType"), query.Get("personnel"), query.Get("q"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, d.ViewFor(criteria))
		return
	}

	s.writeJSON(w, r, http.StatusOK, d.View())
}

func (s *Server) putFilters(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	var req filtersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	criteria, err := parseCriteria(req.ServiceType, req.Personnel, req.SearchTerm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d.SetFilters(criteria)

	s.writeJSON(w, r, http.StatusOK, d.View())
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	s.writeDraft(w, r, d)
}

func (s *Server) patchDraft(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	var patch form.DraftPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := d.ApplyDraft(patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeDraft(w, r, d)
}

func (s *Server) submitDraft(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	shipment, err := d.Submit(r.Context())
	if err != nil {
		logger(r, s.log, d).InfoContext(r.Context(), "Submit rejected", "error", err)
		s.writeError(w, r, err)
		return
	}

	draft, mode := d.Draft()
	s.writeJSON(w, r, http.StatusOK, submitResponse{Shipment: shipment, Draft: draft, Mode: mode})
}

func (s *Server) resetDraft(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	d.ResetDraft()
	s.writeDraft(w, r, d)
}

func (s *Server) editShipment(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	if err := d.BeginEdit(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDraft(w, r, d)
}

func (s *Server) deleteShipment(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	if err := d.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getShipment(w http.ResponseWriter, r *http.Request, _ *dashboard.Dashboard) {
	shipment, err := s.reader.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, shipment)
}

func (s *Server) getMap(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	s.writeJSON(w, r, http.StatusOK, mapview.Build(d.Filtered()))
}

func (s *Server) writeDraft(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	draft, mode := d.Draft()
	s.writeJSON(w, r, http.StatusOK, draftResponse{Draft: draft, Mode: mode})
}
