package domain

import (
	"fmt"
	"sort"
	"strings"
)

// MaxKeyLength bounds the length of a redirect key.
const MaxKeyLength = 100

// Key is a validated redirect short-key. It can only be obtained through
// ParseKey, so downstream code never sees an invalid key.
type Key string

// KeyErrorReason classifies why a raw key was rejected.
type KeyErrorReason string

const (
	KeyTooLong           KeyErrorReason = "TOO_LONG"
	KeyInvalidCharacters KeyErrorReason = "INVALID_CHARACTERS"
)

// KeyError reports a rejected key. For InvalidCharacters it carries the
// distinct offending characters so callers can show exactly what was rejected.
type KeyError struct {
	Reason  KeyErrorReason
	Invalid []rune
}

func (e *KeyError) Error() string {
	switch e.Reason {
	case KeyTooLong:
		return fmt.Sprintf("key exceeds %d characters", MaxKeyLength)
	case KeyInvalidCharacters:
		return fmt.Sprintf("key contains invalid characters: %s", string(e.Invalid))
	default:
		return "invalid key"
	}
}

// InvalidString returns the offending characters as a deterministic string.
func (e *KeyError) InvalidString() string {
	var sb strings.Builder
	for _, r := range e.Invalid {
		sb.WriteRune(r)
	}
	return sb.String()
}

// ParseKey validates a raw short-key. Rules are checked in order, first match
// wins: length over MaxKeyLength, then any character outside [A-Za-z0-9_-].
func ParseKey(raw string) (Key, error) {
	if len(raw) > MaxKeyLength {
		return "", &KeyError{Reason: KeyTooLong}
	}

	seen := map[rune]bool{}
	invalid := make([]rune, 0)
	for _, r := range raw {
		if validKeyRune(r) {
			continue
		}
		if !seen[r] {
			seen[r] = true
			invalid = append(invalid, r)
		}
	}
	if len(invalid) > 0 {
		sort.Slice(invalid, func(i, j int) bool { return invalid[i] < invalid[j] })
		return "", &KeyError{Reason: KeyInvalidCharacters, Invalid: invalid}
	}
	return Key(raw), nil
}

func validKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
