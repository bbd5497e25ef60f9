package validation

import (
	"regexp"
	"strings"
)

var (
	promoCodePattern  = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)
	tonAddressPattern = regexp.MustCompile(`^[UEk0-9A-Za-z_-]{48}$`)
)

// NormalizeCode trims and upper-cases a promo code. It is idempotent.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeAddress trims surrounding whitespace from a wallet address.
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// IsValidCode reports whether the normalized code is 6-12 uppercase letters or digits.
func IsValidCode(code string) bool {
	return promoCodePattern.MatchString(NormalizeCode(code))
}

// IsValidAddress reports whether address looks like a user-friendly TON address.
func IsValidAddress(address string) bool {
	return tonAddressPattern.MatchString(NormalizeAddress(address))
}
