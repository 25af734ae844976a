package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/melih-ucgun/clonectl/internal/config"
)

// Job runs one save or load against a single target.
type Job func(ctx context.Context, t config.Target) error

// Outcome is the result of a Job on one target.
type Outcome struct {
	Target   string
	Err      error
	Duration time.Duration
}

// Executor runs a job across inventory targets with bounded concurrency.
// Every target gets its own engine; one failing target never stops others.
type Executor struct {
	targets     []config.Target
	concurrency int
	quiet       bool
}

// NewExecutor creates a new fleet executor
func NewExecutor(targets []config.Target, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{
		targets:     targets,
		concurrency: concurrency,
	}
}

// Quiet disables console output.
func (e *Executor) Quiet() *Executor {
	e.quiet = true
	return e
}

// Run executes job on all targets and returns one outcome per target, in
// inventory order.
func (e *Executor) Run(ctx context.Context, label string, job Job) ([]Outcome, error) {
	if !e.quiet {
		pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgMagenta)).Printf("Fleet %s: %d target(s)", label, len(e.targets))
		pterm.Println()
	}

	outcomes := make([]Outcome, len(e.targets))
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, target := range e.targets {
		g.Go(func() error {
			start := time.Now()
			var err error
			if ctx.Err() != nil {
				err = ctx.Err()
			} else {
				err = job(ctx, target)
			}
			outcomes[i] = Outcome{Target: target.Name, Err: err, Duration: time.Since(start)}
			if e.quiet {
				return nil
			}
			if err != nil {
				pterm.Error.Printf("[%s] Failed: %v\n", target.Name, err)
			} else {
				pterm.Success.Printf("[%s] Done\n", target.Name)
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("[%s] %w", o.Target, o.Err))
		}
	}
	if len(errs) > 0 {
		return outcomes, fmt.Errorf("execution failed on %d/%d targets: %w", len(errs), len(e.targets), errors.Join(errs...))
	}
	return outcomes, nil
}
