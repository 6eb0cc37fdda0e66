package emailaddr

import "errors"

var (
	// ErrEmptyAddress indicates the address is empty or whitespace-only.
	ErrEmptyAddress = errors.New("email address is empty")

	// ErrBadFormat indicates the address does not match the local@domain.tld shape.
	ErrBadFormat = errors.New("invalid email format, expected local@domain.tld")

	// ErrAtCount indicates the address does not contain exactly one @ symbol.
	ErrAtCount = errors.New("email must contain exactly one @ symbol")

	// ErrEmptyLocalPart indicates the part before @ is empty.
	ErrEmptyLocalPart = errors.New("local part of email is empty")

	// ErrEmptyDomain indicates the part after @ is empty.
	ErrEmptyDomain = errors.New("domain part of email is empty")

	// ErrDomainDotEdge indicates the domain starts or ends with a dot.
	ErrDomainDotEdge = errors.New("domain cannot start or end with a dot")
)
