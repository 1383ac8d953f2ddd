// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Unavailable is the sentinel the listing API uses when no phone is known.
const Unavailable = "N/A"

// HasUsable reports whether the input carries a dialable number. The
// sentinel match is case-insensitive in case the upstream casing drifts.
func HasUsable(input string) bool {
	trimmed := strings.TrimSpace(input)
	return trimmed != "" && !strings.EqualFold(trimmed, Unavailable)
}

// NormalizeE164 formats a phone number to E.164, assuming US numbers when no
// country code is present (a bare 10-digit number becomes +1XXXXXXXXXX).
// If parsing fails, it falls back to prefixing the cleaned digits with "+".
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if !HasUsable(trimmed) {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	cleaned := digitsOnly(trimmed)
	if cleaned == "" {
		return ""
	}
	if len(cleaned) == 10 {
		return "+1" + cleaned
	}
	return "+" + cleaned
}

func digitsOnly(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
