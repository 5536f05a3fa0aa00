package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/realtime"
)

// ServeWS upgrades an authenticated request and registers the socket with the hub.
// Every connection joins its user and role rooms; approved providers also join
// available_providers and admins join the admins room.
func ServeWS(hub *realtime.Hub, bs BookingAPI, providers models.ProviderRepo, allowedOrigins []string, logger *slog.Logger) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		userID, role, ok := actor(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		rooms := socketRooms(ctx, providers, userID, role, logger)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
			return
		}

		client := realtime.NewClient(conn, hub, userID, role, logger)
		logger.Info("Websocket connected", "user_id", userID, "role", role, "rooms", rooms)
		client.Serve(ctx, rooms, func(ctx context.Context, bookingID uuid.UUID) error {
			_, err := bs.GetBooking(ctx, bookingID, userID, role)
			return err
		})
		logger.Info("Websocket disconnected", "user_id", userID)
	}
}

func socketRooms(ctx context.Context, providers models.ProviderRepo, userID uuid.UUID, role string, logger *slog.Logger) []string {
	rooms := []string{realtime.UserRoom(userID), realtime.RoleRoom(role)}
	switch role {
	case models.RoleAdmin:
		rooms = append(rooms, realtime.AdminsRoom)
	case models.RoleProvider:
		p, err := providers.GetProviderByID(ctx, userID)
		if err != nil {
			logger.Warn("Provider profile unavailable, not joining dispatch room", "user_id", userID, "error", err)
			break
		}
		if p.IsActive && p.IsApproved {
			rooms = append(rooms, realtime.AvailableProvidersRoom)
		}
	}
	return rooms
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
