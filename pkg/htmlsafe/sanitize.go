package htmlsafe

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	editorPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

func initPolicy() {
	policyOnce.Do(func() {
		// Only the constructs the rewrite in Render understands survive;
		// everything else (scripts, event handlers, javascript: URLs) is
		// stripped.
		editorPolicy = bluemonday.NewPolicy()
		editorPolicy.AllowStandardURLs()
		editorPolicy.AllowElements(
			"p", "div", "br", "span",
			"strong", "b", "em", "i", "u",
			"ul", "ol", "li",
		)
		editorPolicy.AllowAttrs("href").OnElements("a")
		editorPolicy.AllowAttrs("style").OnElements("p", "div", "span", "li")
		editorPolicy.AllowStyles("font-weight", "font-style", "text-decoration", "color").Globally()
		editorPolicy.RequireNoFollowOnLinks(true)
	})
}

// Sanitize strips everything from an editor fragment that the Outlook-safe
// rewrite does not understand. Callers should apply it to untrusted input
// before Render.
func Sanitize(fragment string) string {
	initPolicy()
	return editorPolicy.Sanitize(fragment)
}
