package orders

import "strings"

const countryCode = "55"

// MinPhoneDigits is the shortest normalized phone a gateway accepts.
const MinPhoneDigits = 12

// NormalizePhone reduces a phone to digits and prefixes the Brazilian
// country code exactly once.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" {
		return ""
	}
	if (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, countryCode) {
		digits = digits[len(countryCode):]
	}
	return countryCode + digits
}

// ValidPhone reports whether a normalized phone is long enough to send to.
func ValidPhone(phone string) bool {
	return len(phone) >= MinPhoneDigits
}
