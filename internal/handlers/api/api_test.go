package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"carprice/internal/catalog"
	"carprice/internal/models"
	"carprice/internal/predictor"
	"carprice/internal/testutil"
)

type stubPredictor struct {
	got  *models.PredictionRequest
	pred *models.Prediction
	err  error
}

func (s *stubPredictor) Predict(_ context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	s.got = &req
	return s.pred, s.err
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func newTestApp(p *stubPredictor) *fiber.App {
	app := fiber.New()
	cat := NewCatalogHandler(catalog.FromRecords(testutil.SampleRecords))
	app.Get("/api/catalog", cat.Categories)
	app.Get("/api/models/:brand", cat.Models)
	app.Post("/api/predict", NewPredictHandler(p).Predict)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, body)
	}
	return resp.StatusCode, env
}

func TestCategories(t *testing.T) {
	app := newTestApp(&stubPredictor{})

	status, env := do(t, app, httpRequest(http.MethodGet, "/api/catalog", ""))
	if status != fiber.StatusOK || env.Status != "ok" {
		t.Fatalf("status = %d %q", status, env.Status)
	}

	var cats catalog.Categories
	if err := json.Unmarshal(env.Data, &cats); err != nil {
		t.Fatal(err)
	}
	if strings.Join(cats.Brands, ",") != "Honda,Toyota" {
		t.Errorf("brands = %v", cats.Brands)
	}
	if strings.Join(cats.FuelTypes, ",") != "Diesel,Petrol" {
		t.Errorf("fuel types = %v", cats.FuelTypes)
	}
	if strings.Join(cats.Transmissions, ",") != "Automatic,Manual" {
		t.Errorf("transmissions = %v", cats.Transmissions)
	}
}

func TestModels(t *testing.T) {
	app := newTestApp(&stubPredictor{})

	status, env := do(t, app, httpRequest(http.MethodGet, "/api/models/Honda", ""))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var data struct {
		Brand  string   `json:"brand"`
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Brand != "Honda" || strings.Join(data.Models, ",") != "Amaze,City" {
		t.Errorf("got %+v", data)
	}

	status, env = do(t, app, httpRequest(http.MethodGet, "/api/models/Tesla", ""))
	if status != fiber.StatusNotFound || env.Error != "brand not found" {
		t.Errorf("unknown brand: status = %d, error = %q", status, env.Error)
	}
}

func TestPredict(t *testing.T) {
	stub := &stubPredictor{pred: &models.Prediction{PredictedPrice: 4321.5}}
	app := newTestApp(stub)

	body := `{"brand":"Honda","model":"City","kms_driven":"42000","year":"2017","fuel_type":"Petrol","transmission":"Manual"}`
	status, env := do(t, app, httpRequest(http.MethodPost, "/api/predict", body))

	if status != fiber.StatusOK {
		t.Fatalf("status = %d, error = %q", status, env.Error)
	}
	var pred models.Prediction
	if err := json.Unmarshal(env.Data, &pred); err != nil {
		t.Fatal(err)
	}
	if pred.PredictedPrice != 4321.5 {
		t.Errorf("price = %v", pred.PredictedPrice)
	}
	if stub.got == nil || stub.got.Model != "City" || stub.got.KmsDriven != "42000" {
		t.Errorf("predictor got %+v", stub.got)
	}
}

const fullBody = `{"brand":"Honda","model":"City","kms_driven":"42000","year":"2017","fuel_type":"Petrol","transmission":"Manual"}`

func TestPredictErrors(t *testing.T) {
	t.Run("missing keys", func(t *testing.T) {
		stub := &stubPredictor{}
		status, env := do(t, newTestApp(stub), httpRequest(http.MethodPost, "/api/predict", `{"brand":"Honda"}`))
		if status != fiber.StatusBadRequest || env.Error != "Missing form field." {
			t.Errorf("status = %d, error = %q", status, env.Error)
		}
		if stub.got != nil {
			t.Error("predictor should not run for an incomplete body")
		}
	})

	t.Run("empty values are forwarded", func(t *testing.T) {
		stub := &stubPredictor{pred: &models.Prediction{PredictedPrice: 1}}
		body := `{"brand":"Honda","model":"","kms_driven":"","year":"2017","fuel_type":"Petrol","transmission":"Manual"}`
		if status, env := do(t, newTestApp(stub), httpRequest(http.MethodPost, "/api/predict", body)); status != fiber.StatusOK {
			t.Fatalf("status = %d, error = %q", status, env.Error)
		}
		if stub.got == nil || stub.got.Model != "" || stub.got.KmsDriven != "" {
			t.Errorf("predictor got %+v", stub.got)
		}
	})

	t.Run("non-string value", func(t *testing.T) {
		stub := &stubPredictor{}
		body := strings.Replace(fullBody, `"kms_driven":"42000"`, `"kms_driven":{}`, 1)
		status, _ := do(t, newTestApp(stub), httpRequest(http.MethodPost, "/api/predict", body))
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
		if stub.got != nil {
			t.Error("predictor should not run for a malformed value")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		stub := &stubPredictor{}
		status, env := do(t, newTestApp(stub), httpRequest(http.MethodPost, "/api/predict", "{"))
		if status != fiber.StatusBadRequest || env.Status != "error" {
			t.Errorf("status = %d %q", status, env.Status)
		}
		if stub.got != nil {
			t.Error("predictor should not run for a malformed body")
		}
	})

	t.Run("busy", func(t *testing.T) {
		stub := &stubPredictor{err: predictor.ErrBusy}
		status, env := do(t, newTestApp(stub), httpRequest(http.MethodPost, "/api/predict", fullBody))
		if status != fiber.StatusServiceUnavailable || env.Error != "Prediction service busy." {
			t.Errorf("status = %d, error = %q", status, env.Error)
		}
	})

	t.Run("invalid output", func(t *testing.T) {
		stub := &stubPredictor{err: &predictor.FormatError{Stdout: "x"}}
		status, env := do(t, newTestApp(stub), httpRequest(http.MethodPost, "/api/predict", fullBody))
		if status != fiber.StatusInternalServerError || env.Error != "Invalid response from prediction script." {
			t.Errorf("status = %d, error = %q", status, env.Error)
		}
	})
}

func httpRequest(method, target, body string) *http.Request {
	req, _ := http.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
