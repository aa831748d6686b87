// Package validation normalizes and validates the identifiers users log in
// with. Classification is deterministic: a value containing "@" is treated
// as an email, a value of digits (with optional separators and a leading +)
// as a phone number, anything else as a username.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tastebase/auth/internal/domain/repository"
)

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{2,31}$`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
)

// phoneStrip removes the separators people type into phone numbers.
var phoneStrip = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// ClassifyIdentifier decides which credential field a login identifier
// refers to and returns the normalized value alongside the kind.
func ClassifyIdentifier(raw string) (repository.IdentifierKind, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", fmt.Errorf("empty identifier")
	}
	if strings.Contains(s, "@") {
		email, err := NormalizeEmail(s)
		if err != nil {
			return "", "", err
		}
		return repository.IdentifierEmail, email, nil
	}
	if looksLikePhone(s) {
		phone, err := NormalizePhone(s)
		if err != nil {
			return "", "", err
		}
		return repository.IdentifierPhone, phone, nil
	}
	username, err := NormalizeUsername(s)
	if err != nil {
		return "", "", err
	}
	return repository.IdentifierUsername, username, nil
}

func looksLikePhone(s string) bool {
	stripped := phoneStrip.Replace(s)
	stripped = strings.TrimPrefix(stripped, "+")
	return digitsRe.MatchString(stripped)
}

// NormalizeEmail lowercases and trims, rejecting anything that does not
// look like addr@host.tld.
func NormalizeEmail(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(s) {
		return "", fmt.Errorf("invalid email %q", raw)
	}
	return s, nil
}

// NormalizePhone strips separators and returns E.164-style digits with a
// leading +. Bare 11-digit numbers starting with 1 are taken as Chinese
// mobiles (+86...), bare 10-digit numbers as NANP (+1...); anything else
// must carry its own country code.
func NormalizePhone(raw string) (string, error) {
	s := phoneStrip.Replace(strings.TrimSpace(raw))
	hasPlus := strings.HasPrefix(s, "+")
	s = strings.TrimPrefix(s, "+")
	if !digitsRe.MatchString(s) {
		return "", fmt.Errorf("invalid phone %q", raw)
	}
	if !hasPlus {
		switch {
		case len(s) == 11 && s[0] == '1':
			s = "86" + s
		case len(s) == 10:
			s = "1" + s
		default:
			return "", fmt.Errorf("phone %q needs a country code", raw)
		}
	}
	if len(s) < 8 || len(s) > 15 {
		return "", fmt.Errorf("invalid phone %q", raw)
	}
	return "+" + s, nil
}

// NormalizeUsername trims and validates: 3-32 chars, starting with a letter
// or digit, then letters, digits, dot, underscore, or dash.
func NormalizeUsername(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !usernameRe.MatchString(s) {
		return "", fmt.Errorf("invalid username %q", raw)
	}
	return s, nil
}

// CodeTarget validates the destination of a verification code: an email or
// a phone number, classified the same way identifiers are.
func CodeTarget(raw string) (repository.IdentifierKind, string, error) {
	kind, value, err := ClassifyIdentifier(raw)
	if err != nil {
		return "", "", err
	}
	if kind == repository.IdentifierUsername {
		return "", "", fmt.Errorf("code target %q is neither email nor phone", raw)
	}
	return kind, value, nil
}
