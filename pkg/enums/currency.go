package enums

import "strings"

// NormalizeCurrency lowercases and trims an ISO 4217 currency code. Codes are
// stored lowercase, matching the checkout surface that feeds this module.
func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
