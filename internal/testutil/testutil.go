// Package testutil provides test utilities and helpers.
package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"carprice/internal/catalog"
	"carprice/internal/config"
)

// Helper predictor modes.
const (
	ModeOK      = "ok"      // prints {"predicted_price": 12345.6}
	ModeEcho    = "echo"    // prints the kms_driven argument as the price
	ModeExit    = "exit"    // writes to stderr and exits 1
	ModeGarbage = "garbage" // exits 0 with non-JSON output
	ModeMissing = "missing" // exits 0 with JSON lacking predicted_price
	ModeSleep   = "sleep"   // sleeps far longer than any test timeout
)

// DatasetHeader is the header written by WriteDataset.
var DatasetHeader = []string{"Make", "Model", "Price", "Year", "Kilometer", "Fuel Type", "Transmission"}

// WriteDataset writes a CSV dataset into a temp dir and returns its path.
// Each row is {make, model, fuel type, transmission}.
func WriteDataset(t *testing.T, rows [][4]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cars.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(DatasetHeader); err != nil {
		t.Fatalf("failed to write dataset header: %v", err)
	}
	for _, r := range rows {
		if err := w.Write([]string{r[0], r[1], "500000", "2018", "40000", r[2], r[3]}); err != nil {
			t.Fatalf("failed to write dataset row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("failed to flush dataset: %v", err)
	}

	return path
}

// SampleRecords is a small dataset shared by handler and server tests.
var SampleRecords = []catalog.Record{
	{Make: "Honda", Model: "City", FuelType: "Petrol", Transmission: "Manual"},
	{Make: "Honda", Model: "Amaze", FuelType: "Diesel", Transmission: "Manual"},
	{Make: "Toyota", Model: "Innova", FuelType: "Diesel", Transmission: "Automatic"},
	{Make: "Honda", Model: "City", FuelType: "Petrol", Transmission: "Automatic"},
}

// HelperPredictor returns a predictor config that re-executes the running
// test binary as a fake predictor. The calling package must define
//
//	func TestHelperProcess(t *testing.T) { testutil.RunHelperPredictor() }
func HelperPredictor(mode string) config.PredictorConfig {
	return config.PredictorConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=^TestHelperProcess$", "--"},
		Env:     []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_PREDICTOR_MODE=" + mode},
		Timeout: 20 * time.Second,
	}
}

// RunHelperPredictor acts as the external predictor when the test binary is
// re-executed by HelperPredictor. It returns immediately otherwise.
func RunHelperPredictor() {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	if len(args) != 6 {
		fmt.Fprintf(os.Stderr, "expected 6 arguments, got %d: %q\n", len(args), args)
		os.Exit(2)
	}

	switch os.Getenv("HELPER_PREDICTOR_MODE") {
	case ModeOK:
		fmt.Println(`{"predicted_price": 12345.6}`)
	case ModeEcho:
		fmt.Printf("{\"predicted_price\": %s}\n", args[2])
	case ModeExit:
		fmt.Fprintln(os.Stderr, `{"error": "model file not found"}`)
		os.Exit(1)
	case ModeGarbage:
		fmt.Println("Traceback (most recent call last): not json")
	case ModeMissing:
		fmt.Println(`{"error": "no price"}`)
	case ModeSleep:
		time.Sleep(time.Minute)
	default:
		fmt.Fprintln(os.Stderr, "unknown helper mode")
		os.Exit(3)
	}
	os.Exit(0)
}
