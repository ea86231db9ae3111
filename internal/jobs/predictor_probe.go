package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"carprice/internal/config"
	"carprice/internal/metrics"
)

// PredictorProbe periodically checks that the predictor can be spawned.
type PredictorProbe struct {
	cfg       config.PredictorConfig
	interval  time.Duration
	metrics   *metrics.Metrics
	lookPath  func(string) (string, error)
	available *bool
}

// NewPredictorProbe creates a new predictor probe.
func NewPredictorProbe(cfg config.PredictorConfig, interval time.Duration, m *metrics.Metrics) *PredictorProbe {
	return &PredictorProbe{
		cfg:      cfg,
		interval: interval,
		metrics:  m,
		lookPath: exec.LookPath,
	}
}

// Start begins the background probe loop.
func (p *PredictorProbe) Start(ctx context.Context) {
	slog.Info("predictor probe started", "interval", p.interval)

	// Run immediately on start
	p.check()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("predictor probe stopped")
			return
		case <-ticker.C:
			p.check()
		}
	}
}

// check probes once and logs state transitions.
func (p *PredictorProbe) check() bool {
	err := p.Probe()
	ok := err == nil
	p.metrics.SetPredictorAvailable(ok)

	if p.available == nil || *p.available != ok {
		if ok {
			slog.Info("predictor available", "command", p.cfg.Command)
		} else {
			slog.Error("predictor unavailable", "command", p.cfg.Command, "error", err)
		}
	}
	p.available = &ok
	return ok
}

// Probe resolves the predictor command and checks its working directory.
// It does not run the predictor.
func (p *PredictorProbe) Probe() error {
	if _, err := p.lookPath(p.commandPath()); err != nil {
		return fmt.Errorf("resolve predictor command: %w", err)
	}
	if p.cfg.WorkDir != "" {
		info, err := os.Stat(p.cfg.WorkDir)
		if err != nil {
			return fmt.Errorf("predictor working directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("predictor working directory %q is not a directory", p.cfg.WorkDir)
		}
	}
	return nil
}

// commandPath resolves a relative command path (./venv/bin/python) against the
// working directory the predictor is spawned in. Bare names search PATH.
func (p *PredictorProbe) commandPath() string {
	cmd := p.cfg.Command
	if p.cfg.WorkDir == "" || filepath.IsAbs(cmd) || !strings.ContainsRune(cmd, filepath.Separator) {
		return cmd
	}
	return filepath.Join(p.cfg.WorkDir, cmd)
}
