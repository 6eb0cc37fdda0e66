// Package dispatch runs a personalized bulk email job against a mail
// transport: it iterates a recipient batch in order, expands placeholders,
// renders the Outlook-safe body, sends each message, and retries failures
// in bounded passes.
//
// A job runs on its own goroutine so the caller's control flow is never
// blocked; progress, log, per-row status and completion are reported
// through the Events callbacks in emission order. The Finished callback
// fires exactly once for every started job, including the fatal-error
// path, so callers can always re-enable their controls.
//
// Cancellation is cooperative: the context is sampled at row and pass
// boundaries, never mid-send. The design assumes at most one active job
// per Orchestrator at a time; callers must serialize dispatches.
//
//	orch, _ := dispatch.New(transport, dispatch.WithLogger(log))
//	orch.Dispatch(ctx, dispatch.Job{
//		Batch:      batch,
//		Subject:    "Payslip for {{fullname}}",
//		Body:       "<p>Dear {{fullname}},</p>",
//		SpacingPx:  12,
//		MaxRetries: 3,
//	}, dispatch.Events{
//		RowStatus: func(i int, st recipient.Status) { /* update table */ },
//		Finished:  func() { /* unlock UI */ },
//	})
package dispatch
