package stock

import (
	"errors"

	"stocksync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the sync feature.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleSync)
	group.Get("/status", h.HandleStatus)
	group.Post("/watermarks/:source/reset", h.HandleWatermarkReset)
}

// HandleHealth reports liveness. Registered outside the auth group.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": "stocksync"})
}

// HandleSync runs one reconciliation over the posted batch.
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var batch Batch
	if err := c.BodyParser(&batch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "error": "invalid batch payload: " + err.Error(),
		})
	}

	l.Info("Sync triggered",
		zap.Int("purchases", len(batch.Purchases)),
		zap.Int("sales", len(batch.Sales)),
		zap.Int("pos_counts", len(batch.POSCounts)),
	)

	result, err := h.service.Run(c.Context(), batch)
	if err != nil {
		status := statusForErr(err)
		l.Error("Sync failed", zap.Error(err), zap.Int("http_status", status))
		return c.Status(status).JSON(fiber.Map{"status": "error", "error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "success", "result": result})
}

// HandleStatus returns the current run metadata and watermarks.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	report, err := h.service.Status(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "error", "error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "success", "data": report})
}

// HandleWatermarkReset clears one source's watermark. This forces a full
// reprocess of that source's history and is the documented recovery path
// for watermark corruption.
func (h *Handler) HandleWatermarkReset(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	source := c.Params("source")

	if err := h.service.ResetWatermark(c.Context(), source); err != nil {
		status := statusForErr(err)
		l.Error("Watermark reset failed", zap.String("source", source), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"status": "error", "error": err.Error()})
	}

	l.Warn("Watermark reset", zap.String("source", source))
	return c.JSON(fiber.Map{"status": "success", "source": source})
}

// statusForErr maps the run error taxonomy onto HTTP status codes.
func statusForErr(err error) int {
	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		invariantErr  *InvariantError
	)
	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.As(err, &conflictErr):
		return fiber.StatusConflict
	case errors.As(err, &invariantErr):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
