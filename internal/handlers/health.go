package handlers

import (
	"github.com/gofiber/fiber/v3"

	"carprice/internal/catalog"
)

// HealthHandler reports readiness. The server only listens once the catalog
// is loaded, so a response always means ready.
type HealthHandler struct {
	catalog *catalog.Index
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(idx *catalog.Index) *HealthHandler {
	return &HealthHandler{catalog: idx}
}

// Show returns the catalog size.
func (h *HealthHandler) Show(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"rows":   h.catalog.Rows(),
		"brands": len(h.catalog.Categories().Brands),
	})
}
