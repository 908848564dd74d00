package domain

import (
	"regexp"
	"strings"

	dErrors "salegate/pkg/domain-errors"
)

// Account is an opaque address-equivalent identity. It is used purely as a
// map key across the engine; the engine never interprets its contents beyond
// format validation at trust boundaries.
//
// Usage: construct via ParseAccount when parsing requests; direct casting
// bypasses validation.
type Account string

var accountPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// ParseAccount validates and canonicalizes an account string. Accounts are
// lowercased so lookups are case-insensitive regardless of how the caller
// checksums the address.
func ParseAccount(s string) (Account, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account cannot be empty")
	}
	if !accountPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "account must be a 0x-prefixed 20-byte hex string")
	}
	return Account(s), nil
}

func (a Account) String() string {
	return string(a)
}

// IsZero reports whether the account is unset.
func (a Account) IsZero() bool {
	return a == ""
}
