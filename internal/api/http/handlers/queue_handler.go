package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/service"
)

// QueueHandler exposes the on-demand queue recompute.
type QueueHandler struct {
	queue service.Recomputer
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queue service.Recomputer) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// Recompute POST /api/v1/queue/recompute. Per-row failures are reported in
// the result; the next run retries them.
func (h *QueueHandler) Recompute(c *fiber.Ctx) error {
	result, err := h.queue.Recompute(c.UserContext(), service.TriggerManual)
	if err != nil && result.Scanned == 0 {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
