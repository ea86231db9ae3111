package models

import "strings"

// PredictionRequest carries the vehicle attributes exactly as submitted.
// Values are forwarded to the predictor without type coercion.
type PredictionRequest struct {
	Brand        string `json:"brand" form:"brand"`
	Model        string `json:"model" form:"model"`
	KmsDriven    string `json:"kms_driven" form:"kms_driven"`
	Year         string `json:"year" form:"year"`
	FuelType     string `json:"fuel_type" form:"fuel_type"`
	Transmission string `json:"transmission" form:"transmission"`
}

// Args returns the predictor's positional arguments in their fixed order.
func (r PredictionRequest) Args() []string {
	return []string{r.Brand, r.Model, r.KmsDriven, r.Year, r.FuelType, r.Transmission}
}

// Clone returns a copy that owns its strings. Values read from a request may
// alias a buffer the HTTP server reuses once the handler returns.
func (r PredictionRequest) Clone() PredictionRequest {
	return PredictionRequest{
		Brand:        strings.Clone(r.Brand),
		Model:        strings.Clone(r.Model),
		KmsDriven:    strings.Clone(r.KmsDriven),
		Year:         strings.Clone(r.Year),
		FuelType:     strings.Clone(r.FuelType),
		Transmission: strings.Clone(r.Transmission),
	}
}

// Prediction is a successful predictor result.
type Prediction struct {
	PredictedPrice float64 `json:"predicted_price"`
}

// PredictionFormFields lists the url-encoded form keys of a prediction request.
var PredictionFormFields = []string{"brand", "model", "kms_driven", "year", "fuel_type", "transmission"}
