package normalize

import "strings"

// Phone reduces a raw phone string to the canonical digits-only form used as
// the subscriber key. Brazilian local numbers (10 or 11 digits, DDD + line)
// get the 55 country code prepended; anything already carrying a country code
// is kept as-is. Returns "" when no digits survive.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13):
		return digits
	case len(digits) == 10 || len(digits) == 11:
		return "55" + digits
	default:
		return digits
	}
}
