package handler

import (
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"
	"github.com/akvekariya/AIChatBot/internal/pkg/serverutils"
	internalWS "github.com/akvekariya/AIChatBot/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type ChatWsHandler struct {
	hub         *internalWS.Hub
	coordinator *internalWS.Coordinator
	logger      logger.ILogger
}

func NewChatWsHandler(hub *internalWS.Hub, coordinator *internalWS.Coordinator, log logger.ILogger) *ChatWsHandler {
	return &ChatWsHandler{
		hub:         hub,
		coordinator: coordinator,
		logger:      log,
	}
}

func (h *ChatWsHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/chat/v1/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and upgrades the connection. The token
// comes from the query param (browser clients cannot set headers on websocket
// upgrades) or the Authorization header.
func (h *ChatWsHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	userID, err := serverutils.VerifyToken(tokenStr)
	if err != nil {
		h.logger.Warn("ChatWsHandler", "Invalid token in handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.serveClient(conn, userID)
	})(c)
}

func (h *ChatWsHandler) serveClient(conn *websocket.Conn, userID uuid.UUID) {
	client := &internalWS.Client{
		Hub:    h.hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
	h.coordinator.ServeClient(client)
}
