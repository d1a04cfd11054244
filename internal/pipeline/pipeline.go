package pipeline

import (
	"context"
	"log/slog"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each acting on the same crawl job.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation and the job to act on.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded on the job and return nil.
	Do(ctx context.Context, job *model.CrawlJob) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
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

// Execute runs all pipeline steps in sequence against the job.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps should handle their own timeouts. This allows
// graceful cleanup between steps while still respecting cancellation.
//
// A step error stops the pipeline and marks the job failed, unless the
// job already reached a terminal state (a crawl that completed is not
// un-completed because a later persistence step failed).
func (p *Pipeline) Execute(ctx context.Context, job *model.CrawlJob) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"domain", job.Domain,
				"reason", ctx.Err(),
			)
			p.failJob(job, ctx.Err().Error())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"domain", job.Domain,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"domain", job.Domain,
				"error", err,
			)
			p.failJob(job, err.Error())
			return err
		}
	}

	return nil
}

// failJob marks the job failed, tolerating jobs already in a terminal
// state.
func (p *Pipeline) failJob(job *model.CrawlJob, reason string) {
	if err := job.Fail(reason); err != nil {
		p.logger.Debug("job already terminal", "domain", job.Domain, "error", err)
	}
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
