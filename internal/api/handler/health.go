package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Aman-Sigroha/kyc/internal/stage"
)

// HealthHandler reports process and stage readiness.
type HealthHandler struct {
	registry *stage.Registry
}

func NewHealthHandler(registry *stage.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// HealthResponse is the readiness report for the gateway.
type HealthResponse struct {
	Status string       `json:"status"`
	Stages stage.Report `json:"stages"`
}

// Live GET /health - trivial liveness probe.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Health GET /api/v1/health - stage readiness. Healthy only when all four
// stages loaded; otherwise 503 with the per-stage report.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	report := h.registry.Readiness(c.Context())

	resp := HealthResponse{Status: "healthy", Stages: report}
	if !report.Healthy() {
		resp.Status = "unhealthy"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
