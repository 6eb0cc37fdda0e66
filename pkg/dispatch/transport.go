package dispatch

import "context"

// Message is a fully-prepared outbound email. CC is applied only when
// non-empty; the attachment is referenced by filesystem path and read by
// the transport.
type Message struct {
	To             string
	CC             string
	Subject        string
	HTMLBody       string
	AttachmentPath string
	HighImportance bool
	ReadReceipt    bool
}

// Folder is a pollable message counter, used by the delivery-confirmation
// heuristic (outbox drained, or sent-items grew).
type Folder interface {
	Count(ctx context.Context) (int, error)
}

// Session is an established connection to the mail transport.
type Session interface {
	// Folders resolves the outbound staging area and the sent-items area.
	Folders(ctx context.Context) (outbox, sent Folder, err error)

	// Send submits a message for delivery. Submission may be asynchronous
	// on the transport side; delivery is confirmed via the folder counters.
	Send(ctx context.Context, msg *Message) error

	Close() error
}

// Transport is the external mail collaborator. Connect may be retried by
// the orchestrator, so it must be safe to call repeatedly.
type Transport interface {
	Connect(ctx context.Context) (Session, error)
}
