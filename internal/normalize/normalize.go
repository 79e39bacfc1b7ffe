// Package normalize holds the small pure helpers shared by the payment-link
// and reminder flows: Indian phone numbers and rupee amounts.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// CountryCode is the national prefix stripped from and re-added to numbers.
	CountryCode = "91"

	localLength = 10
)

// MinimumAmount is the floor applied to payment-link amounts (one rupee).
var MinimumAmount = decimal.NewFromInt(1)

// Phone strips a leading +91 or 91 prefix and any separators, returning the
// bare local number. Phone is idempotent: a 10-digit local number is
// returned unchanged.
func Phone(raw string) string {
	s := strings.TrimSpace(raw)
	hasPlus := strings.HasPrefix(s, "+")

	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	local := string(digits)

	switch {
	case hasPlus && strings.HasPrefix(local, CountryCode):
		local = strings.TrimPrefix(local, CountryCode)
	case len(local) == localLength+len(CountryCode) && strings.HasPrefix(local, CountryCode):
		local = strings.TrimPrefix(local, CountryCode)
	case len(local) == localLength+1 && local[0] == '0':
		// trunk prefix, as in 09999999999
		local = local[1:]
	}
	return local
}

// PhoneOr normalizes raw and substitutes filler when nothing is left.
func PhoneOr(raw, filler string) string {
	if p := Phone(raw); p != "" {
		return p
	}
	return filler
}

// E164Digits returns the international form without the plus sign, as used
// by wa.me links ("919999999999").
func E164Digits(raw string) string {
	local := Phone(raw)
	if local == "" {
		return ""
	}
	return CountryCode + local
}

// EmailOr returns the trimmed email or filler when it is empty.
func EmailOr(raw, filler string) string {
	if e := strings.TrimSpace(raw); e != "" {
		return e
	}
	return filler
}

// PaymentAmount floors non-positive totals to MinimumAmount so the gateway
// never receives a zero or negative link amount.
func PaymentAmount(total decimal.Decimal) decimal.Decimal {
	if total.LessThanOrEqual(decimal.Zero) {
		return MinimumAmount
	}
	return total
}

// MinorUnits converts a rupee amount to paise, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts paise back to rupees.
func FromMinorUnits(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}
