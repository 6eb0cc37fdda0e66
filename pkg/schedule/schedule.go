// Package schedule runs recurring jobs on cron expressions, for unattended
// batch dispatches (e.g. monthly payslip runs). Expressions use the
// standard 5-field format: minute hour day month weekday.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work. The context is cancelled when the
// runner stops, so long dispatches shut down cooperatively.
type Job func(ctx context.Context)

// Runner owns a cron scheduler and the shared lifecycle context of its
// jobs.
type Runner struct {
	cron   *cron.Cron
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates a stopped runner; call Start after registering jobs.
func New(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:   cron.New(),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a named job on a cron expression. Returns an error for
// unparsable expressions.
func (r *Runner) Add(spec, name string, job Job) error {
	if job == nil {
		return fmt.Errorf("schedule: job %q is nil", name)
	}

	_, err := r.cron.AddFunc(spec, func() {
		r.log.Info("scheduled job started", slog.String("job", name))
		job(r.ctx)
		r.log.Info("scheduled job finished", slog.String("job", name))
	})
	if err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q for job %q: %w", spec, name, err)
	}
	return nil
}

// Start begins running jobs at their scheduled times.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cron.Start()
}

// Stop cancels the job context and waits for running jobs to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancel()
	<-r.cron.Stop().Done()
}
