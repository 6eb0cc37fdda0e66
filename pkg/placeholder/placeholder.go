// Package placeholder expands the {{fullname}} token in subject and body
// templates against a recipient's full name.
//
// Subject and body are deliberately asymmetric: the subject carries the full
// name verbatim, while the body uses the surname only (the part before the
// first comma in "Surname, Given" style names). This is a fixed business
// rule, not a configuration knob.
package placeholder

import "strings"

// Token is the single placeholder recognized in subject and body templates.
const Token = "{{fullname}}"

// Surname derives the salutation name from a full name. For "Dela Cruz,
// Juan" it returns "Dela Cruz"; a name without a comma is returned trimmed.
func Surname(fullName string) string {
	fullName = strings.TrimSpace(fullName)
	if before, _, ok := strings.Cut(fullName, ","); ok {
		return strings.TrimSpace(before)
	}
	return fullName
}

// Subject replaces every Token occurrence with the full name verbatim.
func Subject(template, fullName string) string {
	return strings.ReplaceAll(template, Token, strings.TrimSpace(fullName))
}

// Body replaces every Token occurrence with the surname derived from the
// full name.
func Body(template, fullName string) string {
	return strings.ReplaceAll(template, Token, Surname(fullName))
}
