package validation

import (
	"errors"
	"fmt"
	"strings"

	"carprice/internal/models"
)

// MaxFieldLength bounds a single forwarded form value. It matches the Linux
// per-argument limit (MAX_ARG_STRLEN); anything shorter is forwarded verbatim.
const MaxFieldLength = 128 << 10

var (
	// ErrMissingField is returned when a form key is absent from the body.
	ErrMissingField = errors.New("missing form field")
	// ErrUnsafeArgument is returned for values that cannot be passed as a process argument.
	ErrUnsafeArgument = errors.New("value cannot be passed to the predictor")
)

// Catalog is the subset of the catalog index needed for selection checks.
type Catalog interface {
	HasBrand(brand string) bool
	HasModel(brand, model string) bool
	HasFuelType(fuelType string) bool
	HasTransmission(transmission string) bool
}

// SelectionError reports a submitted value that the catalog does not know.
type SelectionError struct {
	Field string
	Value string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

// MissingFields returns the prediction form keys for which present reports false.
func MissingFields(present func(key string) bool) []string {
	var missing []string
	for _, key := range models.PredictionFormFields {
		if !present(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// ValidateArguments checks that every value can be passed to the predictor as
// a process argument. Values are otherwise forwarded verbatim.
func ValidateArguments(req models.PredictionRequest) error {
	for i, v := range req.Args() {
		if strings.IndexByte(v, 0) >= 0 {
			return fmt.Errorf("%s contains a NUL byte: %w", models.PredictionFormFields[i], ErrUnsafeArgument)
		}
		if len(v) > MaxFieldLength {
			return fmt.Errorf("%s exceeds %d bytes: %w", models.PredictionFormFields[i], MaxFieldLength, ErrUnsafeArgument)
		}
	}
	return nil
}

// ValidateSelection checks brand, model, fuel type and transmission against
// the catalog. Kms driven and year are left to the predictor.
func ValidateSelection(req models.PredictionRequest, cat Catalog) error {
	switch {
	case !cat.HasBrand(req.Brand):
		return &SelectionError{Field: "brand", Value: req.Brand}
	case !cat.HasModel(req.Brand, req.Model):
		return &SelectionError{Field: "model", Value: req.Model}
	case !cat.HasFuelType(req.FuelType):
		return &SelectionError{Field: "fuel_type", Value: req.FuelType}
	case !cat.HasTransmission(req.Transmission):
		return &SelectionError{Field: "transmission", Value: req.Transmission}
	}
	return nil
}
