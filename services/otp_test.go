package services

import (
	"strings"
	"testing"
	"unicode"
)

func TestGenerateOTPFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP failed: %v", err)
		}

		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %d (%q)", len(code), code)
		}

		if code != strings.ToUpper(code) {
			t.Errorf("code %q is not uppercase", code)
		}

		letters, digits := 0, 0
		for _, r := range code {
			switch {
			case unicode.IsUpper(r):
				letters++
			case unicode.IsDigit(r):
				digits++
			default:
				t.Fatalf("unexpected character %q in code %q", r, code)
			}
		}

		if letters != 3 || digits != 3 {
			t.Errorf("expected 3 letters and 3 digits, got %d/%d in %q", letters, digits, code)
		}
	}
}

func TestGenerateOTPVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP failed: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected distinct codes across calls")
	}
}
