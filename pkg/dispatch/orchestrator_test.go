package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailmerge/pkg/dispatch"
	"github.com/dmitrymomot/mailmerge/pkg/recipient"
)

// fakeFolder reports a count read from the owning session.
type fakeFolder struct {
	count func() int
}

func (f fakeFolder) Count(ctx context.Context) (int, error) {
	return f.count(), nil
}

// fakeSession scripts per-address failures and records accepted messages.
type fakeSession struct {
	mu          sync.Mutex
	sent        []*dispatch.Message
	sentItems   int            // sent-items folder counter
	failPlan    map[string]int // remaining failures per address
	panicOn     map[string]bool
	outboxCount int
	stuckSent   bool // sent-items counter never grows after a send
	folderErr   error
	closed      bool
}

func (s *fakeSession) Folders(ctx context.Context) (dispatch.Folder, dispatch.Folder, error) {
	if s.folderErr != nil {
		return nil, nil, s.folderErr
	}
	outbox := fakeFolder{count: func() int {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.outboxCount
	}}
	sent := fakeFolder{count: func() int {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.sentItems
	}}
	return outbox, sent, nil
}

func (s *fakeSession) Send(ctx context.Context, msg *dispatch.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.panicOn[msg.To] {
		panic("transport blew up")
	}
	if s.failPlan[msg.To] > 0 {
		s.failPlan[msg.To]--
		return errors.New("transport rejected the message")
	}
	s.sent = append(s.sent, msg)
	if !s.stuckSent {
		s.sentItems++
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeTransport fails Connect a scripted number of times before handing
// out the session.
type fakeTransport struct {
	mu          sync.Mutex
	session     *fakeSession
	connectErrs int
	attempts    int
}

func (t *fakeTransport) Connect(ctx context.Context) (dispatch.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts++
	if t.connectErrs > 0 {
		t.connectErrs--
		return nil, errors.New("transport unreachable")
	}
	return t.session, nil
}

// recorder collects emitted events. Run is synchronous in these tests, so
// no locking is needed.
type recorder struct {
	progress []int
	logs     []string
	statuses map[int][]recipient.Status
	finished int
}

func newRecorder() *recorder {
	return &recorder{statuses: make(map[int][]recipient.Status)}
}

func (r *recorder) events() dispatch.Events {
	return dispatch.Events{
		Progress:  func(p int) { r.progress = append(r.progress, p) },
		Log:       func(m string) { r.logs = append(r.logs, m) },
		RowStatus: func(i int, st recipient.Status) { r.statuses[i] = append(r.statuses[i], st) },
		Finished:  func() { r.finished++ },
	}
}

func (r *recorder) logsContaining(substr string) int {
	n := 0
	for _, l := range r.logs {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func testAttachment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payslip.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastOptions() []dispatch.Option {
	return []dispatch.Option{
		dispatch.WithLogger(quietLogger()),
		dispatch.WithConnectPolicy(5, 0),
		dispatch.WithConfirmPolicy(2, 0),
		dispatch.WithRetryPassDelay(0),
	}
}

func newBatch(attachment string, emails ...string) recipient.Batch {
	b := make(recipient.Batch, 0, len(emails))
	for _, e := range emails {
		b = append(b, recipient.Recipient{
			FullName:       "Dela Cruz, Juan",
			Email:          e,
			AttachmentPath: attachment,
			Status:         recipient.StatusPending,
		})
	}
	return b
}

func TestNew_NilTransport(t *testing.T) {
	t.Parallel()

	_, err := dispatch.New(nil)
	assert.ErrorIs(t, err, dispatch.ErrNilTransport)
}

func TestRun_AllSent(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com", "b@example.com", "c@example.com")
	batch[1].CC = "boss@example.com"
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch:      batch,
		Subject:    "Payslip for {{fullname}}",
		Body:       "<p>Dear {{fullname}},</p>",
		SpacingPx:  12,
		MaxRetries: 3,
	}, rec.events())

	for i := range batch {
		assert.Equal(t, recipient.StatusSent, batch[i].Status, "row %d", i)
	}
	assert.Equal(t, []int{33, 66, 100}, rec.progress)
	assert.Equal(t, 1, rec.finished)
	assert.True(t, session.closed)

	require.Len(t, session.sent, 3)
	first := session.sent[0]
	assert.Equal(t, "a@example.com", first.To)
	assert.Equal(t, "Payslip for Dela Cruz, Juan", first.Subject) // full name in subject
	assert.Contains(t, first.HTMLBody, "Dear Dela Cruz,")         // surname in body
	assert.Contains(t, first.HTMLBody, "<!DOCTYPE html>")
	assert.Equal(t, att, first.AttachmentPath)
	assert.True(t, first.HighImportance)
	assert.True(t, first.ReadReceipt)

	assert.Empty(t, first.CC)
	assert.Equal(t, "boss@example.com", session.sent[1].CC)
}

func TestRun_RetryEventuallySucceeds(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{failPlan: map[string]int{"b@example.com": 2}}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com", "b@example.com", "c@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", SpacingPx: 12, MaxRetries: 3,
	}, rec.events())

	for i := range batch {
		assert.Equal(t, recipient.StatusSent, batch[i].Status, "row %d", i)
	}
	// Row 1 went Failed, Failed, Sent across first pass + two retry passes.
	assert.Equal(t, []recipient.Status{
		recipient.StatusFailed, recipient.StatusFailed, recipient.StatusSent,
	}, rec.statuses[1])
	assert.GreaterOrEqual(t, rec.logsContaining("retry"), 2)
	assert.Equal(t, 1, rec.finished)
}

func TestRun_NoRetriesLeavesRowFailed(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{failPlan: map[string]int{"b@example.com": 99}}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com", "b@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", MaxRetries: 0,
	}, rec.events())

	assert.Equal(t, recipient.StatusSent, batch[0].Status)
	assert.Equal(t, recipient.StatusFailed, batch[1].Status)
	assert.Zero(t, rec.logsContaining("retry"))
	assert.Equal(t, 1, rec.finished)
}

func TestRun_RetriesExhausted(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{failPlan: map[string]int{"b@example.com": 99}}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com", "b@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", MaxRetries: 2,
	}, rec.events())

	assert.Equal(t, recipient.StatusFailed, batch[1].Status)
	assert.Equal(t, 1, rec.logsContaining("still failed after all retries"))
	assert.Equal(t, 1, rec.finished)
}

func TestRun_CancelMidFirstPass(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com", "b@example.com", "c@example.com", "d@example.com")
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	events := rec.events()
	baseStatus := events.RowStatus
	events.RowStatus = func(i int, st recipient.Status) {
		baseStatus(i, st)
		if i == 1 {
			cancel() // stop after the second row's attempt
		}
	}

	orch.Run(ctx, dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", MaxRetries: 3,
	}, events)

	assert.Equal(t, recipient.StatusSent, batch[0].Status)
	assert.Equal(t, recipient.StatusSent, batch[1].Status)
	assert.Equal(t, recipient.StatusPending, batch[2].Status)
	assert.Equal(t, recipient.StatusPending, batch[3].Status)
	assert.Equal(t, 1, rec.logsContaining("stopped by user"))
	assert.Equal(t, 1, rec.finished)
}

func TestRun_ConnectFailureIsTerminal(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	transport := &fakeTransport{session: &fakeSession{}, connectErrs: 99}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>",
	}, rec.events())

	assert.Equal(t, 5, transport.attempts)
	assert.Empty(t, rec.statuses)
	assert.Empty(t, rec.progress)
	assert.Equal(t, recipient.StatusPending, batch[0].Status)
	assert.Equal(t, 1, rec.logsContaining("could not connect"))
	assert.Equal(t, 1, rec.finished)
}

func TestRun_ConnectRecoversWithinBudget(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{}
	transport := &fakeTransport{session: session, connectErrs: 3}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>",
	}, rec.events())

	assert.Equal(t, 4, transport.attempts)
	assert.Equal(t, recipient.StatusSent, batch[0].Status)
}

func TestRun_FolderErrorIsTerminal(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{folderErr: errors.New("mailbox store offline")}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>",
	}, rec.events())

	assert.Empty(t, rec.statuses)
	assert.Equal(t, recipient.StatusPending, batch[0].Status)
	assert.Equal(t, 1, rec.logsContaining("busy or not ready"))
	assert.Equal(t, 1, rec.finished)
}

func TestRun_EmptyAddressRejectedAtSendTime(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "", "b@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", MaxRetries: 0,
	}, rec.events())

	assert.Equal(t, recipient.StatusFailed, batch[0].Status)
	assert.Equal(t, recipient.StatusSent, batch[1].Status)
	// User-facing row number for index 0 is 2.
	assert.Equal(t, 1, rec.logsContaining("no email address for row 2"))
	require.Len(t, session.sent, 1)
}

func TestRun_MissingAttachmentRejected(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(filepath.Join(t.TempDir(), "does-not-exist.pdf"), "a@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", MaxRetries: 0,
	}, rec.events())

	assert.Equal(t, recipient.StatusFailed, batch[0].Status)
	assert.Equal(t, 1, rec.logsContaining("attachment not found"))
	assert.Empty(t, session.sent)
}

func TestRun_TransportPanicIsContained(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{panicOn: map[string]bool{"a@example.com": true}}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com", "b@example.com")
	rec := newRecorder()

	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>", MaxRetries: 0,
	}, rec.events())

	// The panic is contained at the row boundary; the rest of the batch
	// still goes out and the job completes normally.
	assert.Equal(t, recipient.StatusFailed, batch[0].Status)
	assert.Equal(t, recipient.StatusSent, batch[1].Status)
	assert.Equal(t, 1, rec.finished)
}

func TestRun_EmptyBatch(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{session: &fakeSession{}}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	rec := newRecorder()
	orch.Run(context.Background(), dispatch.Job{Subject: "s", Body: "b"}, rec.events())

	assert.Equal(t, 1, rec.logsContaining("batch is empty"))
	assert.Empty(t, rec.progress)
	assert.Equal(t, 1, rec.finished)
}

func TestRun_ConfirmationTimeoutStillSucceeds(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	// Outbox never drains and the sent-items counter never grows past the
	// snapshot taken before the send; the poll must time out without
	// failing the row because submission itself succeeded.
	session := &fakeSession{outboxCount: 1, stuckSent: true}
	transport := &fakeTransport{session: session}

	orch, err := dispatch.New(transport,
		dispatch.WithLogger(quietLogger()),
		dispatch.WithConnectPolicy(1, 0),
		dispatch.WithConfirmPolicy(3, 0),
		dispatch.WithRetryPassDelay(0),
	)
	require.NoError(t, err)

	batch := newBatch(att, "slow@example.com")
	rec := newRecorder()
	orch.Run(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>",
	}, rec.events())

	assert.Equal(t, recipient.StatusSent, batch[0].Status)
	assert.Equal(t, 1, rec.finished)
}

func TestDispatch_RunsInBackground(t *testing.T) {
	t.Parallel()

	att := testAttachment(t)
	session := &fakeSession{}
	transport := &fakeTransport{session: session}
	orch, err := dispatch.New(transport, fastOptions()...)
	require.NoError(t, err)

	batch := newBatch(att, "a@example.com")
	done := make(chan struct{})

	orch.Dispatch(context.Background(), dispatch.Job{
		Batch: batch, Subject: "s", Body: "<p>b</p>",
	}, dispatch.Events{Finished: func() { close(done) }})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not finish in time")
	}
	assert.Equal(t, recipient.StatusSent, batch[0].Status)
}
