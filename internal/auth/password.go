package auth

import "strings"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// passwordSymbols is the fixed set a strong password must draw one symbol from.
const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// IsStrongPassword reports whether password meets the registration policy:
// at least MinPasswordLength characters with an upper-case letter, a
// lower-case letter, a digit and one symbol from passwordSymbols.
func IsStrongPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
