package api

import (
	"net/url"

	"github.com/gofiber/fiber/v3"

	"carprice/internal/catalog"
)

// CatalogHandler exposes the form options as JSON.
type CatalogHandler struct {
	catalog *catalog.Index
}

// NewCatalogHandler creates a new API catalog handler.
func NewCatalogHandler(idx *catalog.Index) *CatalogHandler {
	return &CatalogHandler{catalog: idx}
}

// Categories returns the brand, fuel type and transmission lists.
func (h *CatalogHandler) Categories(c fiber.Ctx) error {
	return jsonSuccess(c, h.catalog.Categories())
}

// Models returns the models offered for a brand.
func (h *CatalogHandler) Models(c fiber.Ctx) error {
	brand, err := url.PathUnescape(c.Params("brand"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid brand")
	}

	models, ok := h.catalog.Models(brand)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "brand not found")
	}

	return jsonSuccess(c, fiber.Map{
		"brand":  brand,
		"models": models,
	})
}
