package api

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"carprice/internal/handlers"
	"carprice/internal/models"
	"carprice/internal/validation"
)

// PredictHandler runs predictions for JSON clients.
type PredictHandler struct {
	predictor handlers.Predictor
}

// NewPredictHandler creates a new API predict handler.
func NewPredictHandler(p handlers.Predictor) *PredictHandler {
	return &PredictHandler{predictor: p}
}

// Predict accepts the same snake_case fields as the form, as a JSON object of
// strings. Absent keys get the form route's 400; empty strings are forwarded.
func (h *PredictHandler) Predict(c fiber.Ctx) error {
	var body map[string]json.RawMessage
	if err := c.Bind().JSON(&body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if missing := validation.MissingFields(func(key string) bool { _, ok := body[key]; return ok }); len(missing) > 0 {
		slog.Warn("prediction request incomplete", "missing", missing)
		return jsonError(c, fiber.StatusBadRequest, handlers.MsgMissingField)
	}

	values := make([]string, len(models.PredictionFormFields))
	for i, key := range models.PredictionFormFields {
		if err := json.Unmarshal(body[key], &values[i]); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	req := models.PredictionRequest{
		Brand:        values[0],
		Model:        values[1],
		KmsDriven:    values[2],
		Year:         values[3],
		FuelType:     values[4],
		Transmission: values[5],
	}

	pred, err := h.predictor.Predict(c.Context(), req)
	if err != nil {
		return jsonPredictionError(c, err)
	}

	return jsonSuccess(c, pred)
}
