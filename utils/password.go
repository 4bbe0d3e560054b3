package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	RegisterHashCost = 12
	ChangeHashCost   = 10
)

func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const passwordSpecials = "@$!%*?&"

// StrongPassword reports whether p has an upper and a lower case letter, a
// digit and one of @$!%*?&. Length is checked separately.
func StrongPassword(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
