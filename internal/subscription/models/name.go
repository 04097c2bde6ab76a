package models

import (
	"strings"

	"github.com/rivo/uniseg"

	dErrors "inkwell/pkg/domain-errors"
)

// maxNameGraphemes bounds the display length of a subscriber name. Counted in
// grapheme clusters, not bytes, so combining sequences are one unit.
const maxNameGraphemes = 256

var forbiddenNameCharacters = []rune{'/', '(', ')', '"', '<', '>', '\\', '{', '}'}

// Name validation failures. Values so callers can branch with errors.Is.
var (
	ErrNameEmpty         = dErrors.New(dErrors.CodeBadRequest, "name must not be empty or whitespace")
	ErrNameTooLong       = dErrors.New(dErrors.CodeBadRequest, "name must be at most 256 characters")
	ErrNameForbiddenRune = dErrors.New(dErrors.CodeBadRequest, "name contains a forbidden character")
)

// SubscriberName is a validated display name. Construction through ParseName
// is the only validation point; a zero value never leaves this package.
type SubscriberName struct {
	value string
}

// ParseName validates raw and wraps it into a trusted SubscriberName.
func ParseName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, ErrNameEmpty
	}
	if uniseg.GraphemeClusterCount(raw) > maxNameGraphemes {
		return SubscriberName{}, ErrNameTooLong
	}
	if strings.ContainsAny(raw, string(forbiddenNameCharacters)) {
		return SubscriberName{}, ErrNameForbiddenRune
	}
	return SubscriberName{value: raw}, nil
}

func (n SubscriberName) String() string { return n.value }

// IsZero reports whether the name was never parsed.
func (n SubscriberName) IsZero() bool { return n.value == "" }
