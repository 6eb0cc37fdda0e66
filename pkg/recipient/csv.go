package recipient

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Required header columns, matched case-insensitively after trimming.
const (
	colFullName   = "full name"
	colEmail      = "email"
	colCC         = "cc"
	colAttachment = "attachment path"
)

// ErrMissingColumn indicates the input header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Load reads a batch from CSV input. The first record must be a header
// containing the columns "Full Name", "Email", "CC" and "Attachment Path"
// (any order, case-insensitive); column presence is validated once here so
// row access never has to guard against missing fields. Every loaded row
// starts with StatusPending.
func Load(r io.Reader) (Batch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colFullName, colEmail, colCC, colAttachment} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	var batch Batch
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", RowNumber(len(batch)), err)
		}

		batch = append(batch, Recipient{
			FullName:       strings.TrimSpace(record[idx[colFullName]]),
			Email:          strings.TrimSpace(record[idx[colEmail]]),
			CC:             strings.TrimSpace(record[idx[colCC]]),
			AttachmentPath: strings.TrimSpace(record[idx[colAttachment]]),
			Status:         StatusPending,
		})
	}

	return batch, nil
}

// Export writes the batch back as CSV with a trailing Status column, for
// reviewing dispatch results outside the tool.
func Export(w io.Writer, b Batch) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Full Name", "Email", "CC", "Attachment Path", "Status"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range b {
		row := []string{r.FullName, r.Email, r.CC, r.AttachmentPath, string(r.Status)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", RowNumber(i), err)
		}
	}

	cw.Flush()
	return cw.Error()
}
