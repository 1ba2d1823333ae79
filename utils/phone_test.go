package utils

import "testing"

func TestFormatPhoneNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"01012345678", "201012345678"},
		{"+20 101 234 5678", "201012345678"},
		{"201012345678", "201012345678"},
		{"0111-222-3344", "201112223344"},
		{"", ""},
	}
	for _, c := range cases {
		if got := FormatPhoneNumber(c.in); got != c.want {
			t.Fatalf("FormatPhoneNumber(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{"01012345678", "+201112223344", "201234567890", "0155 555 5555"}
	for _, n := range valid {
		if !ValidatePhoneNumber(n) {
			t.Fatalf("expected %q to be valid", n)
		}
	}

	invalid := []string{"", "12345", "01312345678", "0101234567890", "not a number"}
	for _, n := range invalid {
		if ValidatePhoneNumber(n) {
			t.Fatalf("expected %q to be invalid", n)
		}
	}
}

func TestDisplayPhoneNumber(t *testing.T) {
	if got := DisplayPhoneNumber("01012345678"); got != "+20 10 1234 5678" {
		t.Fatalf("unexpected display format %q", got)
	}
	// Numbers that don't normalize to 12 digits come back untouched
	if got := DisplayPhoneNumber("12345"); got != "12345" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
