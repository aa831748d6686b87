package util

import "testing"

func TestMaskIdentifier(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"maria.lopez@example.com", "m…@e….com"},
		{"M.Lopez@Example.COM", "m…@e….com"},
		{"a@b.co", "a@b.co"},
		{"+14155551212", "+1…12"},
		{"5551212", "5…12"},
		{"mariacook", "m…k"},
		{"ana", "***"},
		{"  padded@mail.org  ", "p…@m….org"},
	}
	for _, tc := range cases {
		if got := MaskIdentifier(tc.in); got != tc.want {
			t.Errorf("MaskIdentifier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskEmailWithoutAt(t *testing.T) {
	if got := MaskEmail("not-an-email"); got != "n…l" {
		t.Errorf("got %q", got)
	}
	if got := MaskEmail("@tail.com"); got != "@…m" {
		t.Errorf("leading @: got %q", got)
	}
}
