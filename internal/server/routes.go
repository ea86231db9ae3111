package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carprice/internal/catalog"
	"carprice/internal/handlers"
	"carprice/internal/handlers/api"
	"carprice/internal/metrics"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(idx *catalog.Index, p handlers.Predictor, m *metrics.Metrics) {
	s.Catalog = idx
	s.Metrics = m

	// Initialize handlers
	estimateHandler := handlers.NewEstimateHandler(idx, p, s.Cfg)
	healthHandler := handlers.NewHealthHandler(idx)
	catalogAPI := api.NewCatalogHandler(idx)
	predictAPI := api.NewPredictHandler(p)

	// Prediction submissions spawn processes, so they are rate limited per IP.
	if limit := s.predictLimiter(); limit != nil {
		s.App.Use("/predict", limit)
		s.App.Use("/api/predict", limit)
	}

	// Form routes
	s.App.Get("/", estimateHandler.Index)
	s.App.Post("/predict", estimateHandler.Predict)

	// JSON API
	s.App.Get("/api/catalog", catalogAPI.Categories)
	s.App.Get("/api/models/:brand", catalogAPI.Models)
	s.App.Post("/api/predict", predictAPI.Predict)

	// Operations
	s.App.Get("/healthz", healthHandler.Show)
	if m != nil {
		s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})))
	}
}
