// Package util holds small dependency-free helpers shared across layers.
package util

import "strings"

// MaskIdentifier redacts a login identifier for logs. Emails keep the
// first letter of the user and domain, phone numbers keep the country
// prefix and last two digits, anything else keeps its first and last
// rune. Empty input stays empty so optional fields log as such.
func MaskIdentifier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.ContainsRune(s, '@'):
		return MaskEmail(s)
	case looksNumeric(s):
		return MaskPhone(s)
	}
	r := []rune(s)
	if len(r) <= 3 {
		return "***"
	}
	return string(r[0]) + "…" + string(r[len(r)-1])
}

// MaskEmail keeps enough of an address to recognize it in a log line
// without reproducing it: first letter of the local part, first letter
// of the domain, the TLD intact.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		// not address-shaped after all, keep only the edges
		if r := []rune(s); len(r) > 3 {
			return string(r[0]) + "…" + string(r[len(r)-1])
		}
		if s == "" {
			return ""
		}
		return "***"
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	if j := strings.IndexByte(dom, '.'); j > 1 {
		dom = dom[:1] + "…" + dom[j:]
	}
	return user + "@" + dom
}

// MaskPhone keeps the leading + and country digit plus the last two
// digits, which is what support needs to match a number a user reads
// out loud.
func MaskPhone(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return "***"
	}
	head := 1
	if s[0] == '+' {
		head = 2
	}
	return s[:head] + "…" + s[len(s)-2:]
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '+' && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
