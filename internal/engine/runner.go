// Package engine ejecuta motores externos (ghostscript, qpdf, pdftoppm, libreoffice)
// probando una lista ordenada de ejecutables candidatos.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kavach/engine/internal/metrics"
	"github.com/kavach/engine/pkg/logger"
)

// Invocation una llamada a un motor externo. Todos los candidatos reciben los mismos argumentos.
type Invocation struct {
	Operation  string
	Candidates []string
	Args       []string
	Dir        string
	Env        []string
	// OnFailure se invoca tras cada candidato fallido
	OnFailure func(Attempt)
}

// Runner recorre la cadena de candidatos con timeout por intento
type Runner struct {
	proc    ProcessRunner
	timeout time.Duration
	slots   *semaphore.Weighted
	logger  *logger.Logger
}

// Options configuración del runner
type Options struct {
	Timeout       time.Duration
	MaxConcurrent int
}

// NewRunner crea un runner. proc nil usa ExecRunner.
func NewRunner(proc ProcessRunner, opts Options, log *logger.Logger) *Runner {
	if proc == nil {
		proc = ExecRunner{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Runner{
		proc:    proc,
		timeout: opts.Timeout,
		slots:   semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:  log,
	}
}

// Run prueba cada candidato en orden hasta que uno termina bien.
// Cada candidato se intenta una sola vez, sin backoff.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%s: waiting for engine slot: %w", inv.Operation, err)
	}
	defer r.slots.Release(1)

	attempts := make([]Attempt, 0, len(inv.Candidates))
	for _, tool := range inv.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", inv.Operation, err)
		}

		a := r.attempt(ctx, tool, inv)
		attempts = append(attempts, a)
		metrics.EngineAttemptsTotal.WithLabelValues(inv.Operation, tool, a.Outcome.String()).Inc()
		metrics.EngineDurationSeconds.WithLabelValues(inv.Operation, tool).Observe(a.Duration.Seconds())

		if a.Outcome == Succeeded {
			r.logger.Debugw("⚙️ Engine succeeded", "operation", inv.Operation, "tool", tool, "duration", a.Duration)
			break
		}

		r.logger.Warnw("⚠️ Engine candidate failed",
			"operation", inv.Operation,
			"tool", tool,
			"outcome", a.Outcome.String(),
			"error", a.Err,
		)
		if inv.OnFailure != nil {
			inv.OnFailure(a)
		}
	}

	return Settle(inv.Operation, attempts)
}

func (r *Runner) attempt(ctx context.Context, tool string, inv Invocation) Attempt {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := r.proc.Run(attemptCtx, Command{Name: tool, Args: inv.Args, Dir: inv.Dir, Env: inv.Env})
	return Attempt{
		Tool:     tool,
		Outcome:  classify(err),
		Err:      err,
		Duration: time.Since(start),
	}
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return Succeeded
	case errors.Is(err, exec.ErrNotFound):
		return NotInstalled
	case errors.Is(err, context.DeadlineExceeded):
		return TimedOut
	default:
		return Failed
	}
}

// Available indica qué candidatos están instalados en el PATH
func Available(candidates []string) map[string]bool {
	out := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		_, err := exec.LookPath(c)
		out[c] = err == nil
	}
	return out
}
