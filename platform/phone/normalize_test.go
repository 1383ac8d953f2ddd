package phone

import "testing"

func TestHasUsableRejectsSentinelAndEmpty(t *testing.T) {
	for _, input := range []string{"", "  ", "N/A", "n/a"} {
		if HasUsable(input) {
			t.Fatalf("expected %q to be unusable", input)
		}
	}
	if !HasUsable("(555) 123-4567") {
		t.Fatal("expected formatted number to be usable")
	}
}

func TestNormalizeE164TenDigitGetsCountryCode(t *testing.T) {
	got := NormalizeE164("(555) 123-4567")
	if got != "+15551234567" {
		t.Fatalf("expected +15551234567, got %q", got)
	}
}

func TestNormalizeE164AlreadyInternational(t *testing.T) {
	got := NormalizeE164("+1 555 123 4567")
	if got != "+15551234567" {
		t.Fatalf("expected +15551234567, got %q", got)
	}
}

func TestNormalizeE164SameNumberDifferentFormatting(t *testing.T) {
	a := NormalizeE164("555-123-4567")
	b := NormalizeE164("5551234567")
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
}
