package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/bct-trans/efactura-api/internal/application/events"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

// MessageHandler serves notification rows and the websocket push channel.
// The socket carries no payload: on every signal the client re-queries the
// listing endpoint.
type MessageHandler struct {
	messages repository.MessageRepository
	bus      *events.Bus
	log      *logger.Logger
}

func NewMessageHandler(messages repository.MessageRepository, bus *events.Bus, log *logger.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, bus: bus, log: log}
}

// List returns the latest notification rows, newest first.
// GET /api/messages?limit=50
func (h *MessageHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	msgs, err := h.messages.Latest(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(msgs)
}

// UpgradeRequired rejects plain HTTP on the websocket route.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Subscribe bridges the in-process bus onto a websocket: each signal is
// forwarded as a one-word text frame. Subscribers active at emit time get
// it; there is no replay.
// GET /api/messages/ws
func (h *MessageHandler) Subscribe() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ch, cancel := h.bus.Subscribe()
		defer cancel()

		// Reader goroutine: its only job is detecting the client closing.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte("messages")); err != nil {
					h.log.Debug().Err(err).Msg("websocket write failed, dropping subscriber")
					return
				}
			case <-closed:
				return
			}
		}
	})
}
