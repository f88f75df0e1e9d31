package loyalty

import "strings"

// NormalizePhone maps a raw user-entered phone number to its canonical form
// so the same physical number always yields the same string, which is what
// the claimed-phone uniqueness guarantee hinges on.
//
// Rules (deterministic by construction):
//   - every non-digit character is stripped;
//   - a 10-digit number is treated as domestic and prefixed with the
//     configured country code (e.g. "1");
//   - anything longer is assumed to already carry its country digits and is
//     passed through;
//   - the result always starts with "+".
//
// Examples with countryCode "1":
//
//	"(555) 123-4567" → "+15551234567"
//	"5551234567"     → "+15551234567"
//	"+1 555 123 4567"→ "+15551234567"
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return "+" + countryCode + digits
	}
	return "+" + digits
}
