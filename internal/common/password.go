package common

import "unicode"

// MinPasswordLength is the shortest accepted account password.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// CheckPassword returns what is wrong with pw, or "" when it is acceptable:
// at least MinPasswordLength characters, at most MaxPasswordBytes bytes,
// with at least one letter and one digit.
func CheckPassword(pw string) string {
	if len([]rune(pw)) < MinPasswordLength {
		return "must be at least 8 characters long"
	}
	if len(pw) > MaxPasswordBytes {
		return "must be at most 72 bytes long"
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !letter:
		return "must contain a letter"
	case !digit:
		return "must contain a digit"
	}
	return ""
}
