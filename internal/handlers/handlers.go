package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"carprice/internal/models"
	"carprice/internal/predictor"
	"carprice/internal/validation"
)

// User-facing failure messages. No error detail is ever sent to the client.
const (
	MsgPredictionFailed = "Prediction failed."
	MsgInvalidResponse  = "Invalid response from prediction script."
	MsgTimedOut         = "Prediction timed out."
	MsgBusy             = "Prediction service busy."
	MsgInvalidSelection = "Invalid vehicle selection."
	MsgMissingField     = "Missing form field."
)

// Predictor produces a price estimate for a request.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error)
}

// PredictionFailure maps a Predict error to an HTTP status and fixed message.
func PredictionFailure(err error) (int, string) {
	var formatErr *predictor.FormatError
	if errors.As(err, &formatErr) {
		return fiber.StatusInternalServerError, MsgInvalidResponse
	}
	var timeoutErr *predictor.TimeoutError
	if errors.As(err, &timeoutErr) {
		return fiber.StatusGatewayTimeout, MsgTimedOut
	}
	if errors.Is(err, predictor.ErrBusy) {
		return fiber.StatusServiceUnavailable, MsgBusy
	}
	var selErr *validation.SelectionError
	if errors.As(err, &selErr) || errors.Is(err, validation.ErrUnsafeArgument) {
		return fiber.StatusBadRequest, MsgInvalidSelection
	}
	// *predictor.ProcessError and anything unexpected.
	return fiber.StatusInternalServerError, MsgPredictionFailed
}

// plainError sends a fixed plain-text error body.
func plainError(c fiber.Ctx, status int, message string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(message)
}
