package http

import (
	"github.com/gofiber/fiber/v2"

	appefactura "github.com/bct-trans/efactura-api/internal/application/efactura"
	"github.com/bct-trans/efactura-api/internal/application/events"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

// RouterDeps carries the wired collaborators for the router.
type RouterDeps struct {
	StateMachine *appefactura.StateMachine
	Inbound      *appefactura.InboundProcessor
	Messages     repository.MessageRepository
	Bus          *events.Bus
	Log          *logger.Logger
	JWTSecret    string
}

// Router registers the API routes.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Everything here is operator-facing and protected.
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	efacturaHandler := NewEFacturaHandler(deps.StateMachine, deps.Inbound)
	invoices := protected.Group("/efactura/invoices")
	invoices.Post("/:id/advance", efacturaHandler.Advance)
	invoices.Post("/:id/refresh", efacturaHandler.Refresh)
	invoices.Get("/:id/status", efacturaHandler.Status)

	// Inbox fetch mutates expense records; admin only.
	protected.Post("/efactura/inbound/fetch", RequireAdmin(), efacturaHandler.FetchInbound)

	messageHandler := NewMessageHandler(deps.Messages, deps.Bus, deps.Log)
	messages := protected.Group("/messages")
	messages.Get("/", messageHandler.List)
	messages.Get("/ws", UpgradeRequired, messageHandler.Subscribe())
}
