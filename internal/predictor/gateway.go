// Package predictor runs the external price predictor as one process per
// request and enforces its completion contract: exit status 0 and a JSON
// object with a numeric predicted_price on stdout.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"carprice/internal/config"
	"carprice/internal/metrics"
	"carprice/internal/models"
	"carprice/internal/validation"
)

// waitDelay bounds how long pipes stay open after the process exits or is killed.
const waitDelay = 2 * time.Second

var errMissingPrice = errors.New("predicted_price missing or null")

// Gateway invokes the external predictor.
type Gateway struct {
	cfg     config.PredictorConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	cache   *lru.Cache[models.PredictionRequest, float64]
	catalog validation.Catalog
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics records prediction outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithSelectionCheck rejects requests whose brand, model, fuel type or
// transmission is unknown to cat, before any process is spawned.
func WithSelectionCheck(cat validation.Catalog) Option {
	return func(g *Gateway) { g.catalog = cat }
}

// New creates a gateway for the predictor described by cfg.
func New(cfg config.PredictorConfig, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:    cfg,
		tracer: otel.Tracer("carprice/internal/predictor"),
	}
	if cfg.MaxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	if cfg.SpawnRate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.SpawnRate), 1)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[models.PredictionRequest, float64](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		g.cache = cache
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Predict runs the predictor for req and returns its price estimate. Failures
// are *ProcessError, *FormatError, *TimeoutError, ErrBusy, or a validation
// error; none of them is retried.
func (g *Gateway) Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	id := uuid.NewString()
	ctx, span := g.tracer.Start(ctx, "predictor.predict", trace.WithAttributes(
		attribute.String("prediction.id", id),
		attribute.String("vehicle.brand", req.Brand),
		attribute.String("vehicle.model", req.Model),
	))
	defer span.End()

	slog.Info("prediction requested", "id", id, "brand", req.Brand, "model", req.Model,
		"kms_driven", req.KmsDriven, "year", req.Year, "fuel_type", req.FuelType, "transmission", req.Transmission)

	start := time.Now()
	pred, cached, err := g.predict(ctx, id, req)
	elapsed := time.Since(start)

	outcome := OutcomeLabel(err)
	if cached {
		outcome = "cache_hit"
		elapsed = 0
	}
	span.SetAttributes(attribute.String("prediction.outcome", outcome))
	g.metrics.ObservePrediction(outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	slog.Info("prediction completed", "id", id, "predicted_price", pred.PredictedPrice, "duration", elapsed, "cached", cached)
	return pred, nil
}

func (g *Gateway) predict(ctx context.Context, id string, req models.PredictionRequest) (*models.Prediction, bool, error) {
	if err := validation.ValidateArguments(req); err != nil {
		return nil, false, err
	}
	if g.catalog != nil {
		if err := validation.ValidateSelection(req, g.catalog); err != nil {
			slog.Warn("prediction rejected", "id", id, "error", err)
			return nil, false, err
		}
	}

	if g.cache != nil {
		if price, ok := g.cache.Get(req); ok {
			g.metrics.IncCacheHit()
			return &models.Prediction{PredictedPrice: price}, true, nil
		}
	}

	release, err := g.acquire(ctx)
	if err != nil {
		slog.Warn("prediction not admitted", "id", id, "error", err)
		return nil, false, err
	}
	defer release()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, false, fmt.Errorf("wait for spawn rate: %w", err)
		}
	}

	stdout, err := g.run(ctx, id, req)
	if err != nil {
		return nil, false, err
	}

	pred, err := parseOutput(stdout)
	if err != nil {
		slog.Error("failed to parse predictor output", "id", id, "stdout", string(stdout), "error", err)
		return nil, false, err
	}

	if g.cache != nil {
		g.cache.Add(req.Clone(), pred.PredictedPrice)
	}
	return pred, false, nil
}

// acquire takes a process slot, waiting at most QueueTimeout.
func (g *Gateway) acquire(ctx context.Context) (func(), error) {
	if g.sem == nil {
		return func() {}, nil
	}

	waitCtx := ctx
	if g.cfg.QueueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.cfg.QueueTimeout)
		defer cancel()
	}

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBusy
	}
	return func() { g.sem.Release(1) }, nil
}

// run spawns the predictor and returns its full stdout on exit status 0.
func (g *Gateway) run(ctx context.Context, id string, req models.PredictionRequest) ([]byte, error) {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
	}
	defer cancel()

	args := append(slices.Clone(g.cfg.Args), req.Args()...)
	cmd := exec.CommandContext(runCtx, g.cfg.Command, args...)
	cmd.Dir = g.cfg.WorkDir
	cmd.Env = append(os.Environ(), g.cfg.Env...)
	cmd.Env = append(cmd.Env, "PREDICTION_ID="+id)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.metrics.IncInFlight()
	err := cmd.Run()
	g.metrics.DecInFlight()

	if err == nil {
		return stdout.Bytes(), nil
	}

	// A grandchild holding the pipes open past WaitDelay does not change the
	// predictor's own exit status.
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		slog.Warn("predictor pipes outlived the process", "id", id)
		return stdout.Bytes(), nil
	}

	if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		slog.Error("predictor timed out", "id", id, "timeout", g.cfg.Timeout, "stderr", stderr.String())
		return nil, &TimeoutError{Timeout: g.cfg.Timeout, Err: runCtx.Err()}
	}
	if ctx.Err() != nil {
		slog.Warn("predictor cancelled", "id", id, "error", ctx.Err())
		return nil, fmt.Errorf("predictor cancelled: %w", ctx.Err())
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	slog.Error("predictor exited with error", "id", id, "exit_code", exitCode, "stderr", stderr.String(), "error", err)
	return nil, &ProcessError{ExitCode: exitCode, Stderr: stderr.String(), Err: err}
}

type output struct {
	PredictedPrice *float64 `json:"predicted_price"`
}

// parseOutput decodes the predictor's stdout. The whole buffer must be a
// single JSON object; surrounding whitespace is allowed.
func parseOutput(stdout []byte) (*models.Prediction, error) {
	var out output
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, &FormatError{Stdout: string(stdout), Err: err}
	}
	if out.PredictedPrice == nil {
		return nil, &FormatError{Stdout: string(stdout), Err: errMissingPrice}
	}
	return &models.Prediction{PredictedPrice: *out.PredictedPrice}, nil
}
