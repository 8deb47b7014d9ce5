package models

import "strings"

const (
	countryCode     = "55"
	phoneDigitCount = 13
)

// NormalizePhone turns a Brazilian mobile number written in any common way,
// "(81) 99123-4567", "+55 81 991234567" or "0055 81...", into the canonical
// "+55DD9XXXXXXXX". ok is false for anything that is not a valid mobile
// number.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	digits = strings.TrimPrefix(digits, "00")
	// DDD plus nine digits; DDD 55 exists, so the length decides.
	if len(digits) == phoneDigitCount-len(countryCode) {
		digits = countryCode + digits
	}
	if len(digits) != phoneDigitCount || !strings.HasPrefix(digits, countryCode) {
		return "", false
	}
	ddd, number := digits[2:4], digits[4:]
	if ddd == "00" || !strings.HasPrefix(number, "9") {
		return "", false
	}
	return "+" + digits, true
}
