package server

import (
	"errors"
	"log/slog"
	"time"

	"socialgraph/internal/featureflags"
	"socialgraph/internal/models"
	"socialgraph/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// requireEventFeed rejects feed requests when Redis is not configured, when
// the event_feed flag is explicitly switched off, or when the request is not
// a websocket upgrade.
func (s *Server) requireEventFeed(c *fiber.Ctx) error {
	if s.featureFlags.IsSet(featureflags.EventFeed) && !s.featureFlags.Enabled(featureflags.EventFeed, c.IP()) {
		return models.RespondWithError(c, fiber.StatusNotFound, errors.New("event feed is disabled"))
	}
	if s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, errors.New("event feed requires redis"))
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired, errors.New("websocket upgrade required"))
	}
	return c.Next()
}

// EventsHandler streams every mutation event published on the graph
// channel to the connected client.
func (s *Server) EventsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub, err := s.hub.Register()
		if err != nil {
			observability.Logger.Warn("event feed registration failed", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.Unregister(sub)

		// The feed is one-way; reading only detects the client going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					s.hub.Unregister(sub)
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case payload, ok := <-sub.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}
