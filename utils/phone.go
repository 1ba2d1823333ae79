package utils

import (
	"regexp"
	"strings"
)

var nonDigitRe = regexp.MustCompile(`\D`)

// FormatPhoneNumber formats a phone number to a standard format
// Removes all non-digit characters and ensures it starts with country code
func FormatPhoneNumber(phoneNumber string) string {
	digits := nonDigitRe.ReplaceAllString(phoneNumber, "")

	// If it doesn't start with country code, assume Egypt (+20)
	if len(digits) > 0 && !strings.HasPrefix(digits, "20") {
		// Remove leading zeros
		digits = strings.TrimLeft(digits, "0")
		// Add Egypt country code
		digits = "20" + digits
	}

	return digits
}

// ValidatePhoneNumber validates if a phone number is a plausible Egyptian
// mobile number (10 digits after the leading zero, prefix 10/11/12/15).
func ValidatePhoneNumber(phoneNumber string) bool {
	cleaned := nonDigitRe.ReplaceAllString(phoneNumber, "")
	cleaned = strings.TrimPrefix(cleaned, "20")
	cleaned = strings.TrimLeft(cleaned, "0")

	if len(cleaned) != 10 {
		return false
	}

	validPrefixes := []string{"10", "11", "12", "15"}
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			return true
		}
	}

	return false
}

// NormalizePhoneNumber normalizes phone number for database storage
func NormalizePhoneNumber(phoneNumber string) string {
	return FormatPhoneNumber(phoneNumber)
}

// DisplayPhoneNumber formats phone number for display
func DisplayPhoneNumber(phoneNumber string) string {
	formatted := FormatPhoneNumber(phoneNumber)
	if len(formatted) == 12 && strings.HasPrefix(formatted, "20") {
		// Format as +20 1X XXXX XXXX
		return "+" + formatted[:2] + " " + formatted[2:4] + " " + formatted[4:8] + " " + formatted[8:12]
	}
	return phoneNumber
}
