// Package emailaddr validates destination email addresses before dispatch.
//
// Validation is deliberately conservative: it accepts the common
// local@domain.tld shape and rejects anything exotic, because the
// downstream mail transport is far less forgiving than RFC 5322.
// Rules are applied in a fixed order and the first failing rule wins,
// so callers always get the most specific reason available.
//
// Usage:
//
//	if err := emailaddr.Validate("juan@example.com"); err != nil {
//		// err wraps one of the sentinel errors (ErrEmptyAddress, ErrBadFormat, ...)
//	}
package emailaddr
