package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	appefactura "github.com/bct-trans/efactura-api/internal/application/efactura"
	"github.com/bct-trans/efactura-api/internal/domain"
	dfefactura "github.com/bct-trans/efactura-api/internal/domain/efactura"
)

// EFacturaHandler exposes the protocol triggers: the UI fires advance or
// refresh and re-polls status; the inbound fetch is an admin action.
type EFacturaHandler struct {
	machine *appefactura.StateMachine
	inbound *appefactura.InboundProcessor
}

func NewEFacturaHandler(machine *appefactura.StateMachine, inbound *appefactura.InboundProcessor) *EFacturaHandler {
	return &EFacturaHandler{machine: machine, inbound: inbound}
}

// Advance runs the write path (validate or upload, by stored state).
// POST /api/efactura/invoices/:id/advance
func (h *EFacturaHandler) Advance(c *fiber.Ctx) error {
	return h.trigger(c, h.machine.Advance)
}

// Refresh runs the read path (poll status or download, by stored state).
// POST /api/efactura/invoices/:id/refresh
func (h *EFacturaHandler) Refresh(c *fiber.Ctx) error {
	return h.trigger(c, h.machine.Refresh)
}

// Status reports the stored protocol state without gateway traffic.
// GET /api/efactura/invoices/:id/status
func (h *EFacturaHandler) Status(c *fiber.Ctx) error {
	return h.trigger(c, h.machine.Status)
}

// FetchInbound lists and processes the gateway inbox (admin only).
// POST /api/efactura/inbound/fetch?days=60
func (h *EFacturaHandler) FetchInbound(c *fiber.Ctx) error {
	days := c.QueryInt("days", 60)
	if days < 1 || days > 60 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "days must be 1-60"})
	}
	report, err := h.inbound.FetchAndProcess(c.Context(), days)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Code: "GATEWAY", Message: err.Error()})
	}
	return c.JSON(report)
}

func (h *EFacturaHandler) trigger(c *fiber.Ctx, op func(ctx context.Context, id string) (*appefactura.TransitionResult, error)) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "id required"})
	}
	res, err := op(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: "invoice not found"})
		case errors.Is(err, dfefactura.ErrVerbNotAllowed), errors.Is(err, domain.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "CONFLICT", Message: err.Error()})
		case errors.Is(err, domain.ErrNotEligible):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Code: "NOT_ELIGIBLE", Message: err.Error()})
		case errors.Is(err, domain.ErrRateUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Code: "RATE_UNAVAILABLE", Message: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.JSON(res)
}
