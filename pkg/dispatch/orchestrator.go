package dispatch

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailmerge/pkg/htmlsafe"
	"github.com/dmitrymomot/mailmerge/pkg/placeholder"
	"github.com/dmitrymomot/mailmerge/pkg/recipient"
)

// Job describes one dispatch run. The batch slice is mutated in place as
// row statuses advance, so the caller observes final statuses after
// Finished fires. A Job is owned by exactly one run and must not be
// shared across concurrent dispatches.
type Job struct {
	Batch      recipient.Batch
	Subject    string // may contain {{fullname}}, expanded with the full name
	Body       string // may contain {{fullname}}, expanded with the surname
	SpacingPx  int    // vertical gap between rendered blocks, clamped to >= 0
	MaxRetries int    // retry passes over failed rows, clamped to >= 0
}

// Orchestrator runs dispatch jobs against a mail transport.
type Orchestrator struct {
	transport Transport
	cfg       *config
}

// New creates an orchestrator for the given transport.
func New(transport Transport, opts ...Option) (*Orchestrator, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Orchestrator{transport: transport, cfg: cfg}, nil
}

// Dispatch starts the job on its own goroutine and returns immediately.
// Completion is signalled through events.Finished.
func (o *Orchestrator) Dispatch(ctx context.Context, job Job, events Events) {
	go o.Run(ctx, job, events)
}

// Run executes the job synchronously on the calling goroutine. Finished
// fires exactly once before Run returns, on every path including panics
// from the transport.
func (o *Orchestrator) Run(ctx context.Context, job Job, events Events) {
	jobID := uuid.New()
	log := o.cfg.logger.With(slog.String("job_id", jobID.String()))

	defer events.finished()
	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch worker crashed", slog.Any("panic", r))
			events.logf("FATAL ERROR in worker: %v", r)
		}
	}()

	if job.SpacingPx < 0 {
		job.SpacingPx = 0
	}
	if job.MaxRetries < 0 {
		job.MaxRetries = 0
	}

	session := o.connect(ctx, events, log)
	if session == nil {
		return
	}
	defer session.Close()

	outbox, sent, err := session.Folders(ctx)
	if err != nil {
		log.Error("failed to resolve transport folders", slog.Any("error", err))
		events.logf("mail transport is busy or not ready: %v", err)
		return
	}

	total := len(job.Batch)
	if total == 0 {
		events.logf("nothing to send: batch is empty")
		return
	}

	log.Info("dispatch started",
		slog.Int("rows", total),
		slog.Int("max_retries", job.MaxRetries),
		slog.Int("spacing_px", job.SpacingPx))

	// First pass over the whole batch in original order. Failed row
	// indexes are collected in the order the failures are first observed.
	processed := 0
	var failed []int
	for i := range job.Batch {
		if ctx.Err() != nil {
			events.logf("sending stopped by user")
			log.Info("dispatch cancelled", slog.Int("processed", processed))
			break
		}

		if !o.sendOne(ctx, session, outbox, sent, &job, i, events, log) {
			failed = append(failed, i)
		}

		processed++
		events.progress(processed * 100 / total)
	}

	failed = o.retryFailed(ctx, session, outbox, sent, &job, failed, events, log)

	if len(failed) > 0 {
		events.logf("%d emails still failed after all retries", len(failed))
		log.Warn("dispatch finished with failures", slog.Int("failed", len(failed)))
	} else {
		log.Info("dispatch finished", slog.Int("processed", processed))
	}
}

// connect acquires a transport session, retrying per the connect policy.
// Returns nil after exhausting all attempts; the job then ends without
// processing any rows.
func (o *Orchestrator) connect(ctx context.Context, events Events, log *slog.Logger) Session {
	for attempt := 1; attempt <= o.cfg.connectAttempts; attempt++ {
		session, err := o.transport.Connect(ctx)
		if err == nil {
			events.logf("connected to mail transport")
			return session
		}

		log.Warn("transport connection failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		events.logf("attempt %d failed to connect to mail transport: %v", attempt, err)

		if attempt < o.cfg.connectAttempts {
			o.sleep(ctx, o.cfg.connectBackoff)
		}
	}

	events.logf("could not connect to mail transport; make sure it is running and fully ready")
	return nil
}

// retryFailed runs up to MaxRetries passes over the failed rows, shrinking
// the set on success. Rows keep their first-observed failure order across
// passes.
func (o *Orchestrator) retryFailed(ctx context.Context, session Session, outbox, sent Folder, job *Job, failed []int, events Events, log *slog.Logger) []int {
	if len(failed) == 0 || job.MaxRetries == 0 || ctx.Err() != nil {
		return failed
	}

	events.logf("retrying %d failed emails...", len(failed))

	for pass := 1; pass <= job.MaxRetries; pass++ {
		if ctx.Err() != nil || len(failed) == 0 {
			break
		}

		events.logf("retry attempt %d/%d", pass, job.MaxRetries)
		log.Info("retry pass", slog.Int("pass", pass), slog.Int("failed", len(failed)))

		stillFailed := make([]int, 0, len(failed))
		for n, i := range failed {
			if ctx.Err() != nil {
				// Rows not reached in this pass stay failed.
				stillFailed = append(stillFailed, failed[n:]...)
				break
			}
			if !o.sendOne(ctx, session, outbox, sent, job, i, events, log) {
				stillFailed = append(stillFailed, i)
			}
		}
		failed = stillFailed

		// Pause between passes to let transient transport conditions
		// clear, but not after the last one.
		if len(failed) > 0 && pass < job.MaxRetries {
			o.sleep(ctx, o.cfg.retryPassDelay)
		}
	}

	return failed
}

// sendOne attempts delivery for a single row. It reports the outcome via
// row status and log events and never lets a transport error or panic
// escape: every failure is converted into a false return.
func (o *Orchestrator) sendOne(ctx context.Context, session Session, outbox, sent Folder, job *Job, index int, events Events, log *slog.Logger) (ok bool) {
	row := &job.Batch[index]

	fail := func(format string, args ...any) bool {
		row.Status = recipient.StatusFailed
		events.rowStatus(index, recipient.StatusFailed)
		events.logf(format, args...)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("send crashed", slog.Int("row", recipient.RowNumber(index)), slog.Any("panic", r))
			ok = fail("error sending to %s: %v", row.Email, r)
		}
	}()

	addr := strings.TrimSpace(row.Email)
	if addr == "" {
		return fail("no email address for row %d", recipient.RowNumber(index))
	}
	if _, err := os.Stat(row.AttachmentPath); err != nil {
		return fail("attachment not found: %s", row.AttachmentPath)
	}

	startCount, err := sent.Count(ctx)
	if err != nil {
		return fail("error sending to %s: %v", addr, err)
	}

	fullName := strings.TrimSpace(row.FullName)
	msg := &Message{
		To:             addr,
		Subject:        placeholder.Subject(job.Subject, fullName),
		HTMLBody:       htmlsafe.Render(placeholder.Body(job.Body, fullName), job.SpacingPx),
		AttachmentPath: row.AttachmentPath,
		HighImportance: true,
		ReadReceipt:    true,
	}
	if cc := strings.TrimSpace(row.CC); cc != "" {
		msg.CC = cc
	}

	if err := session.Send(ctx, msg); err != nil {
		return fail("error sending to %s: %v", addr, err)
	}

	// Best-effort delivery confirmation: wait for the outbox to drain or
	// the sent-items count to grow. Timing out is not a failure; the
	// submission itself already succeeded.
	for attempt := 0; attempt < o.cfg.confirmAttempts; attempt++ {
		outboxCount, err := outbox.Count(ctx)
		if err != nil {
			return fail("error sending to %s: %v", addr, err)
		}
		sentCount, err := sent.Count(ctx)
		if err != nil {
			return fail("error sending to %s: %v", addr, err)
		}
		if outboxCount == 0 || sentCount > startCount {
			break
		}
		o.sleep(ctx, o.cfg.confirmInterval)
	}

	row.Status = recipient.StatusSent
	events.rowStatus(index, recipient.StatusSent)
	events.logf("sent to %s", addr)
	return true
}

// sleep waits for d or until the context is cancelled, whichever is first.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
