// Package template manages the reusable email template library: named
// subject/body pairs persisted as a single YAML document.
//
// Bodies are authored either as HTML fragments (the rich-text editor
// output) or as markdown, which is converted to HTML with goldmark before
// the Outlook-safe rewrite. HTML bodies are sanitized when stored so the
// library never holds markup the dispatch pipeline cannot handle.
package template

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/dmitrymomot/mailmerge/pkg/htmlsafe"
)

// Format declares how a template body is authored.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

var (
	// ErrNotFound indicates the named template is not in the store.
	ErrNotFound = errors.New("template not found")

	// ErrEmptyName indicates a template without a name.
	ErrEmptyName = errors.New("template name is empty")

	// ErrUnknownFormat indicates a body format other than html or markdown.
	ErrUnknownFormat = errors.New("unknown template format")

	// ErrRenderFailed indicates markdown conversion failed.
	ErrRenderFailed = errors.New("failed to render template body")
)

// Template is one entry of the library. Subject and Body may both carry
// the {{fullname}} placeholder token.
type Template struct {
	Name    string `yaml:"name"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	Format  Format `yaml:"format"`
}

var md = goldmark.New()

// HTML returns the body as an HTML fragment ready for the Outlook-safe
// rewrite. Markdown bodies are converted; HTML bodies pass through as
// stored.
func (t Template) HTML() (string, error) {
	switch t.Format {
	case FormatHTML, "":
		return t.Body, nil
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := md.Convert([]byte(t.Body), &buf); err != nil {
			return "", errors.Join(ErrRenderFailed, err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, t.Format)
	}
}

// Validate checks the template is storable.
func (t Template) Validate() error {
	if t.Name == "" {
		return ErrEmptyName
	}
	switch t.Format {
	case FormatHTML, FormatMarkdown, "":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, t.Format)
	}
}

// sanitized returns a copy safe for storage: HTML bodies are stripped of
// markup the dispatch pipeline cannot handle, markdown is stored verbatim.
func (t Template) sanitized() Template {
	if t.Format == FormatMarkdown {
		return t
	}
	t.Body = htmlsafe.Sanitize(t.Body)
	return t
}
