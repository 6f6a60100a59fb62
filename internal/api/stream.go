package api

import (
	"context"
	"net/http"
	"time"

	"github.com/UnknownOlympus/hermes/internal/dashboard"
	goccy_json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// stream pushes the dashboard view once on connect and again after every change.
// Client messages are ignored; a read error ends the stream.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) {
	log := logger(r, s.log, d)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	log.DebugContext(ctx, "Stream opened")

	for {
		changed := d.Changed()

		message, err := goccy_json.Marshal(d.View())
		if err != nil {
			log.ErrorContext(ctx, "Failed to encode view", "error", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err = conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.DebugContext(ctx, "Stream write failed", "error", err)
			return
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				log.DebugContext(ctx, "Stream closed")
				return
			case <-d.Done():
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard closed"),
					time.Now().Add(writeWait),
				)
				return
			case <-ticker.C:
				s.registry.Touch(d.Identity().ID)
				if err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					log.DebugContext(ctx, "Stream ping failed", "error", err)
					return
				}
			case <-changed:
				break wait
			}
		}
	}
}
