package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/llmsgen/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of origins processed at once when no
// limit is configured.
const DefaultConcurrency = 4

// Factory creates the pipeline for one origin.
// Each origin may need its own settings (site config overrides, cookies),
// so a fresh pipeline is built per origin.
type Factory func(origin string) (*Pipeline, error)

// BatchProcessor handles concurrent processing of multiple origins.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single origin
// 2. Each origin is an independent crawl with its own budget
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// factory creates a new pipeline for each origin.
	factory Factory

	// concurrency is the maximum number of concurrent pipelines.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent pipelines.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline for every origin and returns one run per
// origin, in input order. Runs are returned even when they failed; the
// error is recorded on each run. The returned error is non-nil only when
// ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, origins []string) ([]*model.Run, error) {
	results := make([]*model.Run, len(origins))
	err := bp.ProcessBatchWithCallback(ctx, origins, func(run *model.Run, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = run
	})
	return results, err
}

// ProcessBatchWithCallback runs the pipeline for every origin and calls
// callback as each run completes. The callback is called from the
// goroutine that finished the run, so it must be safe for concurrent use.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Origins that were never started because ctx was cancelled are still
// reported to callback, marked TimedOut, so callers see every origin.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	origins []string,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_origins", len(origins),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, origin := range origins {
		g.Go(func() error {
			run := model.NewRun(origin)
			bp.process(ctx, run, i, len(origins))
			callback(run, i)
			return nil
		})
	}
	_ = g.Wait()

	bp.logger.Info("batch processing complete",
		"total_origins", len(origins),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}

// process executes a fresh pipeline for run.
func (bp *BatchProcessor) process(ctx context.Context, run *model.Run, index, total int) {
	if err := ctx.Err(); err != nil {
		run.TimedOut = true
		run.SetError(err)
		run.FinishedAt = time.Now()
		return
	}

	bp.logger.Info("processing origin",
		"origin", run.Origin,
		"index", index+1,
		"total", total,
	)

	p, err := bp.factory(run.Origin)
	if err != nil {
		bp.logger.Warn("failed to create pipeline", "origin", run.Origin, "error", err)
		run.SetError(err)
		run.FinishedAt = time.Now()
		return
	}

	if err := p.Execute(ctx, run); err != nil {
		bp.logger.Warn("origin failed",
			"origin", run.Origin,
			"error", err,
		)
		return
	}

	bp.logger.Info("origin completed",
		"origin", run.Origin,
		"result", describe(run),
		"elapsed", run.Duration(),
	)
}
