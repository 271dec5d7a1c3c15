package scheduler

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"

	"rental-insights/pipeline"
	"rental-insights/utils"
)

// Runner fires jobs on cron schedules. A job whose previous invocation is
// still running is skipped, and a panicking job is logged instead of taking
// the process down.
type Runner struct {
	cron    *cron.Cron
	logger  *utils.Logger
	baseCtx context.Context
}

func New(baseCtx context.Context, logger *utils.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	cl := cronLogger{logger}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under spec, which accepts the standard five-field syntax
// and descriptors such as "@every 4h".
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	r.logger.Info("[scheduler] cron started with %d entries", len(r.cron.Entries()))
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to return.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("[scheduler] cron stopped")
}

// PipelineRunner is the part of the pipeline driver the scheduler needs.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// PipelineJob adapts a pipeline driver to a cron job. Overlapping triggers
// are logged and skipped.
func PipelineJob(d PipelineRunner, logger *utils.Logger) func(context.Context) {
	return func(ctx context.Context) {
		res, err := d.Run(ctx)
		switch {
		case errors.Is(err, pipeline.ErrRunInProgress):
			logger.Warn("[scheduler] Previous run still in progress, skipping this trigger")
		case err != nil:
			logger.Error("[scheduler] Run failed: %v", err)
		default:
			logger.Info("[scheduler] Run %s produced %d listings", res.RunID, len(res.Batch))
		}
	}
}

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct {
	l *utils.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw("[cron] "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().Errorw("[cron] "+msg, append(keysAndValues, "error", err)...)
}
