package emailaddr

import (
	"fmt"
	"regexp"
	"strings"
)

// addressPattern is the conservative shape the dispatch engine accepts:
// one or more local characters, a single @, a dotted domain with a TLD of
// at least two letters.
var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate checks a single address and returns nil when it is acceptable
// for dispatch. On failure the returned error wraps one of the package
// sentinel errors; rules run in a fixed order and the first failure wins.
func Validate(address string) error {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return ErrEmptyAddress
	}

	if !addressPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: %s", ErrBadFormat, trimmed)
	}

	if strings.Count(trimmed, "@") != 1 {
		return fmt.Errorf("%w: %s", ErrAtCount, trimmed)
	}

	local, domain, _ := strings.Cut(trimmed, "@")
	if local == "" {
		return ErrEmptyLocalPart
	}
	if domain == "" {
		return ErrEmptyDomain
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: %s", ErrDomainDotEdge, domain)
	}

	return nil
}
