// Package api exposes dashboards over HTTP and streams their views over WebSocket.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/dashboard"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	maxBodyBytes        = 1 << 16
)

// ShipmentReader reads one shipment straight from the store. service.Feed implements it.
type ShipmentReader interface {
	Get(ctx context.Context, id string) (models.Shipment, error)
}

// Server routes the dashboard API.
type Server struct {
	log       *slog.Logger
	bootstrap *session.Bootstrap
	registry  *dashboard.Registry
	reader    ShipmentReader

	upgrader       websocket.Upgrader
	allowedOrigins map[string]struct{}
	pingInterval   time.Duration
	handler      http.Handler
}

var _ http.Handler = (*Server)(nil)

// NewServer wires every route and wraps them in request logging.
func NewServer(
	log *slog.Logger,
	bootstrap *session.Bootstrap,
	registry *dashboard.Registry,
	reader ShipmentReader,
) *Server {
	s := &Server{
		log:       log,
		bootstrap: bootstrap,
		registry:  registry,
		reader:    reader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pingInterval: defaultPingInterval,
	}
	s.upgrader.CheckOrigin = s.checkOrigin

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", s.createSession)
	mux.HandleFunc("GET /api/dashboard", s.withDashboard(s.getDashboard))
	mux.HandleFunc("PUT /api/dashboard/filters", s.withDashboard(s.putFilters))
	mux.HandleFunc("GET /api/draft", s.withDashboard(s.getDraft))
	mux.HandleFunc("PATCH /api/draft", s.withDashboard(s.patchDraft))
	mux.HandleFunc("POST /api/draft/submit", s.withDashboard(s.submitDraft))
	mux.HandleFunc("POST /api/draft/reset", s.withDashboard(s.resetDraft))
	mux.HandleFunc("POST /api/shipments/{id}/edit", s.withDashboard(s.editShipment))
	mux.HandleFunc("DELETE /api/shipments/{id}", s.withDashboard(s.deleteShipment))
	mux.HandleFunc("GET /api/shipments/{id}", s.withDashboard(s.getShipment))
	mux.HandleFunc("GET /api/map", s.withDashboard(s.getMap))
	mux.HandleFunc("GET /api/stream", s.withDashboard(s.stream))

	s.handler = loggingMiddleware(log, mux)

	return s
}

// SetPingInterval changes the WebSocket keepalive period.
func (s *Server) SetPingInterval(d time.Duration) {
	s.pingInterval = d
}

// SetAllowedOrigins lists the browser origins, besides the API's own host, that may open
// the stream. An entry of "*" allows any origin.
func (s *Server) SetAllowedOrigins(origins []string) {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	s.allowedOrigins = allowed
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if _, ok := s.allowedOrigins["*"]; ok {
		return true
	}
	_, ok := s.allowedOrigins[strings.ToLower(u.Scheme+"://"+u.Host)]
	return ok
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
