// Package resendmail implements the dispatch transport contract on top of
// the Resend API.
//
// Resend accepts messages synchronously, so there is no outbound staging
// area to poll: the outbox folder always counts zero and the sent-items
// folder counts submissions accepted during the session. The dispatch
// engine's delivery-confirmation heuristic is therefore satisfied on the
// first poll.
package resendmail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/resend/resend-go/v2"

	"github.com/dmitrymomot/mailmerge/pkg/dispatch"
)

var (
	// ErrMissingAPIKey indicates the transport was configured without an API key.
	ErrMissingAPIKey = errors.New("resendmail: API key is required")

	// ErrMissingSender indicates no sender address was configured.
	ErrMissingSender = errors.New("resendmail: sender email is required")
)

// Transport creates Resend-backed sessions.
type Transport struct {
	config Config
}

// New creates a Resend transport.
func New(cfg Config) *Transport {
	return &Transport{config: cfg}
}

// Connect validates the configuration and opens a session. There is no
// persistent connection to establish; failures surface on first send.
func (t *Transport) Connect(ctx context.Context) (dispatch.Session, error) {
	if t.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if t.config.SenderEmail == "" {
		return nil, ErrMissingSender
	}

	from := t.config.SenderEmail
	if t.config.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", t.config.SenderName, t.config.SenderEmail)
	}

	return &session{
		client: resend.NewClient(t.config.APIKey),
		from:   from,
		sender: t.config.SenderEmail,
	}, nil
}

type session struct {
	client   *resend.Client
	from     string
	sender   string
	accepted atomic.Int64
}

func (s *session) Folders(ctx context.Context) (dispatch.Folder, dispatch.Folder, error) {
	return zeroFolder{}, (*acceptedFolder)(s), nil
}

func (s *session) Send(ctx context.Context, msg *dispatch.Message) error {
	req, err := s.buildRequest(msg)
	if err != nil {
		return err
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resendmail: failed to send email: %w", err)
	}

	s.accepted.Add(1)
	return nil
}

func (s *session) Close() error { return nil }

// buildRequest maps a dispatch message onto the Resend request shape.
func (s *session) buildRequest(msg *dispatch.Message) (*resend.SendEmailRequest, error) {
	content, err := os.ReadFile(msg.AttachmentPath)
	if err != nil {
		return nil, fmt.Errorf("resendmail: failed to read attachment: %w", err)
	}

	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Attachments: []*resend.Attachment{{
			Filename: filepath.Base(msg.AttachmentPath),
			Content:  content,
		}},
	}
	if msg.CC != "" {
		req.Cc = []string{msg.CC}
	}

	headers := make(map[string]string)
	if msg.HighImportance {
		headers["X-Priority"] = "1"
		headers["Importance"] = "high"
	}
	if msg.ReadReceipt {
		headers["Disposition-Notification-To"] = s.sender
	}
	if len(headers) > 0 {
		req.Headers = headers
	}

	return req, nil
}

// zeroFolder is the outbox stand-in: the API has no staging area, so it
// always reads empty.
type zeroFolder struct{}

func (zeroFolder) Count(ctx context.Context) (int, error) { return 0, nil }

// acceptedFolder counts submissions accepted during this session.
type acceptedFolder session

func (f *acceptedFolder) Count(ctx context.Context) (int, error) {
	return int(f.accepted.Load()), nil
}
