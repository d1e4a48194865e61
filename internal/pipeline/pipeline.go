package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/llmsgen/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run filled in by
// the previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. Optional behavior (see OfflineStep) can be detected by type assertion
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the run and return nil.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// OfflineStep is a Step that performs no I/O.
// Offline steps still run after the context is cancelled, with a context
// that is never cancelled, so that an interrupted crawl still produces a
// document from the pages it recorded.
type OfflineStep interface {
	Step

	// Offline reports whether the step is safe to run after cancellation.
	Offline() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The error is still recorded in the run.
//
// Design decision: the default is to stop on error because a failed crawl
// (an invalid origin) leaves nothing for later steps to work on.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Once ctx is cancelled, steps that do I/O are skipped and offline steps
// still run, so a cancelled run keeps whatever could be built from the
// pages crawled so far. The run is then marked TimedOut and ctx.Err() is
// returned.
//
// Returns the first step error if continueOnError is false,
// or nil if all steps complete (errors are recorded in run).
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	defer func() { run.FinishedAt = time.Now() }()

	for _, step := range p.steps {
		stepCtx := ctx
		if ctx.Err() != nil {
			if !isOffline(step) {
				p.logger.Warn("skipping step after cancellation",
					"step", step.Name(),
					"origin", run.Origin,
					"reason", ctx.Err(),
				)
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"origin", run.Origin,
		)

		if err := step.Do(stepCtx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"origin", run.Origin,
				"error", err,
			)
			run.SetError(err)

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"origin", run.Origin,
			)
		}

		run.AddPerformedStep(step.Name())
	}

	if err := ctx.Err(); err != nil {
		run.TimedOut = true
		return err
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

func isOffline(step Step) bool {
	o, ok := step.(OfflineStep)
	return ok && o.Offline()
}
