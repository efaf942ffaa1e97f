// Package webhook exposes the GitHub webhook receiver over HTTP.
package webhook

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threatcanvas/integrations/internal/domain/scan"
	domainwebhook "github.com/threatcanvas/integrations/internal/domain/webhook"
	"github.com/threatcanvas/integrations/internal/usecase/webhookproc"
)

const (
	headerSignature = "X-Hub-Signature-256"
	headerEvent     = "X-GitHub-Event"
	headerDelivery  = "X-GitHub-Delivery"
)

type Handler struct {
	processor *webhookproc.Processor
}

func NewHandler(processor *webhookproc.Processor) *Handler {
	return &Handler{processor: processor}
}

// SetupRoutes mounts the webhook receiver plus health and metrics endpoints.
func SetupRoutes(app *fiber.App, h *Handler) {
	app.Post("/api/webhooks/github", h.ReceiveGitHub)
	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (h *Handler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReceiveGitHub handles one webhook delivery. The raw body goes to the
// processor untouched: signature verification runs over the exact bytes
// GitHub signed.
func (h *Handler) ReceiveGitHub(c fiber.Ctx) error {
	eventType := c.Get(headerEvent)
	deliveryID := c.Get(headerDelivery)

	if eventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing " + headerEvent + " header"})
	}

	err := h.processor.ProcessWebhook(c.Context(), eventType, deliveryID, c.Body(), c.Get(headerSignature))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "ok"})

	case errors.Is(err, domainwebhook.ErrBadSignature):
		slog.WarnContext(c.Context(), "webhook signature rejected",
			"delivery_id", deliveryID,
			"event_type", eventType,
		)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})

	case errors.Is(err, domainwebhook.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "webhook secret not configured"})

	case errors.Is(err, scan.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})

	default:
		slog.ErrorContext(c.Context(), "webhook processing failed",
			"delivery_id", deliveryID,
			"event_type", eventType,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
