package server

import (
	"context"
	"log"
	"strconv"

	"guestpost/internal/cache"
	"guestpost/internal/middleware"
	"guestpost/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// IssueWSTicket handles POST /api/ws/ticket. Browsers exchange their bearer
// token for a short-lived single-use ticket they can put in the websocket URL.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ticket := uuid.NewString()
	userID := strconv.FormatUint(uint64(currentUserID(c)), 10)
	if err := cache.StoreOnce(c.UserContext(), cache.WSTicketKey(ticket), userID, cache.WSTicketTTL); err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(err))
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{
		"ticket":    ticket,
		"expiresIn": int(cache.WSTicketTTL.Seconds()),
	})
}

// WebsocketHandler streams moderation events for the caller. Admins also
// receive queue events for every listing.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals("userID").(uint)
		if !ok || s.hub == nil {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		isAdmin := false
		if user, err := s.userRepo.GetByID(context.Background(), uid); err == nil {
			isAdmin = user.IsAdmin()
		}

		client, err := s.hub.Register(uid, isAdmin, conn)
		if err != nil {
			log.Printf("WebSocket: failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}
