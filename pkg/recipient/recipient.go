// Package recipient defines the dispatch batch data model: one Recipient
// per row, loaded from tabular input and addressed by stable index in all
// status and progress reporting.
package recipient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/mailmerge/pkg/emailaddr"
)

// Status tracks the delivery state of a single batch row. It starts as
// Pending and is advanced only by the dispatch orchestrator; a row never
// reverts from Sent.
type Status string

const (
	StatusPending Status = "Pending"
	StatusSent    Status = "Sent"
	StatusFailed  Status = "Failed"
)

// RowOffset converts a zero-based batch index into the row number users
// see in their spreadsheet (header row + 1-based counting).
const RowOffset = 2

// Recipient is one row of the working batch.
type Recipient struct {
	FullName       string // "Surname, Given" by convention
	Email          string
	CC             string // optional
	AttachmentPath string // must exist at send time
	Status         Status
}

// Batch is an ordered, index-addressable sequence of recipients. The index
// is the stable identity used in all status and progress callbacks; a
// batch is never re-sorted after load.
type Batch []Recipient

// RowNumber returns the user-facing row number for a batch index.
func RowNumber(index int) int { return index + RowOffset }

// Invalid describes one rejected row from batch email validation.
type Invalid struct {
	Row     int    // user-facing row number (RowOffset applied)
	Address string
	Reason  string
}

func (i Invalid) String() string {
	return fmt.Sprintf("row %d: %s (%s)", i.Row, i.Address, i.Reason)
}

// ValidateEmails splits a batch into rows acceptable for dispatch and
// rejected rows. A row with an exactly empty address is kept, not
// rejected: empty means "no destination yet" rather than "malformed", and
// such rows are either dropped by DropEmptyEmails before dispatch or
// rejected per-row at send time.
func ValidateEmails(b Batch) (Batch, []Invalid) {
	accepted := make(Batch, 0, len(b))
	var rejected []Invalid

	for i, r := range b {
		addr := strings.TrimSpace(r.Email)
		err := emailaddr.Validate(addr)
		if err == nil || (addr == "" && errors.Is(err, emailaddr.ErrEmptyAddress)) {
			accepted = append(accepted, r)
			continue
		}
		rejected = append(rejected, Invalid{
			Row:     RowNumber(i),
			Address: addr,
			Reason:  err.Error(),
		})
	}

	return accepted, rejected
}

// DropEmptyEmails returns the batch without rows whose address is empty or
// whitespace-only.
func DropEmptyEmails(b Batch) Batch {
	out := make(Batch, 0, len(b))
	for _, r := range b {
		if strings.TrimSpace(r.Email) != "" {
			out = append(out, r)
		}
	}
	return out
}
