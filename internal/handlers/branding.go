package handlers

import (
	"github.com/gofiber/fiber/v3"

	"carprice/internal/config"
)

// MergeBranding adds the layout's site title, tagline and footer to data.
// Every page rendered with layouts/main needs them, error pages included.
func MergeBranding(data fiber.Map, cfg *config.Config) fiber.Map {
	data["SiteTitle"] = cfg.SiteTitle
	data["SiteTagline"] = cfg.SiteTagline
	data["SiteFooter"] = cfg.SiteFooter
	return data
}
