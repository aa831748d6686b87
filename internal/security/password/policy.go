package password

import "unicode"

// Policy is the configurable strength gate for new passwords. The zero
// value accepts anything; MinLength counts runes, not bytes.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Validate checks s and returns the reasons it falls short. The tags are
// stable: they travel into WEAK_PASSWORD error details.
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	runes := []rune(s)
	if len(runes) < p.MinLength {
		reasons = append(reasons, "too_short")
	}

	var upper, lower, digit, symbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	demands := []struct {
		required bool
		met      bool
		tag      string
	}{
		{p.RequireUpper, upper, "missing_upper"},
		{p.RequireLower, lower, "missing_lower"},
		{p.RequireDigit, digit, "missing_digit"},
		{p.RequireSymbol, symbol, "missing_symbol"},
	}
	for _, d := range demands {
		if d.required && !d.met {
			reasons = append(reasons, d.tag)
		}
	}
	return len(reasons) == 0, reasons
}
