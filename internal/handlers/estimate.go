package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"carprice/internal/catalog"
	"carprice/internal/config"
	"carprice/internal/models"
	"carprice/internal/validation"
)

// EstimateHandler renders the vehicle form and handles its submission.
type EstimateHandler struct {
	catalog   *catalog.Index
	predictor Predictor
	cfg       *config.Config
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(idx *catalog.Index, p Predictor, cfg *config.Config) *EstimateHandler {
	return &EstimateHandler{catalog: idx, predictor: p, cfg: cfg}
}

// Index renders the form with no prediction.
func (h *EstimateHandler) Index(c fiber.Ctx) error {
	return c.Render("index", h.page(models.PredictionRequest{}, nil))
}

// Predict forwards the submitted form to the predictor and re-renders the
// form with the estimate. Failures get a fixed plain-text body.
func (h *EstimateHandler) Predict(c fiber.Ctx) error {
	if missing := validation.MissingFields(func(key string) bool { return formHas(c, key) }); len(missing) > 0 {
		slog.Warn("prediction form incomplete", "missing", missing)
		return plainError(c, fiber.StatusBadRequest, MsgMissingField)
	}

	req := models.PredictionRequest{
		Brand:        c.FormValue("brand"),
		Model:        c.FormValue("model"),
		KmsDriven:    c.FormValue("kms_driven"),
		Year:         c.FormValue("year"),
		FuelType:     c.FormValue("fuel_type"),
		Transmission: c.FormValue("transmission"),
	}

	pred, err := h.predictor.Predict(c.Context(), req)
	if err != nil {
		status, message := PredictionFailure(err)
		return plainError(c, status, message)
	}

	return c.Render("index", h.page(req, pred))
}

func (h *EstimateHandler) page(selected models.PredictionRequest, pred *models.Prediction) fiber.Map {
	data := fiber.Map{
		"Categories":    h.catalog.Categories(),
		"ModelsByBrand": h.catalog.ModelsByBrand(),
		"Selected":      selected,
		"HasPrediction": pred != nil,
	}
	if pred != nil {
		data["Prediction"] = formatPrice(pred.PredictedPrice)
	}
	return MergeBranding(data, h.cfg)
}

// formHas reports whether key was submitted, even with an empty value.
func formHas(c fiber.Ctx, key string) bool {
	if c.Request().PostArgs().Has(key) {
		return true
	}
	if form, err := c.MultipartForm(); err == nil {
		_, ok := form.Value[key]
		return ok
	}
	return false
}

// formatPrice renders the price in plain digits, never exponent notation.
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
