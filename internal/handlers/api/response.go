package api

import (
	"github.com/gofiber/fiber/v3"

	"carprice/internal/handlers"
)

// jsonSuccess returns a 200 response with data wrapped in the envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error envelope with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonPredictionError reports a failed prediction with the same status and
// message as the form route.
func jsonPredictionError(c fiber.Ctx, err error) error {
	status, message := handlers.PredictionFailure(err)
	return jsonError(c, status, message)
}
