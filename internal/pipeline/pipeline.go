package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkharvest/internal/model"
)

// Job carries one crawl through the pipeline.
type Job struct {
	// Result accumulates the outcome of the crawl.
	Result *model.CrawlResult

	// Links is the link store mapping loaded for this crawl and updated by
	// the merge step.
	Links model.Links
}

// NewJob creates a Job for seed.
func NewJob(seed string, maxLinks int) *Job {
	return &Job{Result: model.NewCrawlResult(seed, maxLinks)}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the job modified
// by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails; the error is recorded in the result.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finalSteps run after steps, even when one of them failed.
	finalSteps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalSteps: make([]Step, 0),
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

// AddFinalStep appends a step that runs after all other steps, whether or
// not they succeeded.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finalSteps = append(p.finalSteps, step)
}

// Execute runs all pipeline steps in sequence, then the final steps.
//
// Returns the first error of the main steps. A final step error is returned
// only when the main steps succeeded.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	result := job.Result
	runErr := p.run(ctx, job)
	if runErr != nil && result.Succeeded() {
		result.Fail(runErr)
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	// Final steps must run even when ctx was cancelled.
	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		if err := step.Do(finalCtx, job); err != nil {
			p.logger.Error("final step failed",
				"step", step.Name(),
				"seed", result.Seed,
				"error", err,
			)
			if runErr == nil {
				runErr = err
			}
		}
	}

	return runErr
}

func (p *Pipeline) run(ctx context.Context, job *Job) error {
	result := job.Result

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"seed", result.Seed,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", result.Seed,
				"error", err,
			)
			result.Fail(err)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"seed", result.Seed,
		)
	}

	return nil
}

// StepCount returns the number of steps in the pipeline, final steps included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
