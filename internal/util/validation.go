package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// IsValidImageFile checks if a filename has a valid image extension
func IsValidImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	validExts := []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

	for _, validExt := range validExts {
		if ext == validExt {
			return true
		}
	}
	return false
}

// ContainsSpecialCharacter reports whether the value contains at least one
// punctuation or symbol character.
func ContainsSpecialCharacter(value string) bool {
	for _, r := range value {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}

// ContainsUppercaseLetter reports whether the value contains an uppercase letter
func ContainsUppercaseLetter(value string) bool {
	for _, r := range value {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// ContainsLowercaseLetter reports whether the value contains a lowercase letter
func ContainsLowercaseLetter(value string) bool {
	for _, r := range value {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// ContainsNumber reports whether the value contains a digit
func ContainsNumber(value string) bool {
	for _, r := range value {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ValidateNickname checks nickname shape: required, 2-15 chars, letters and
// numbers only. Uniqueness is checked against the database separately.
func ValidateNickname(nickname string) error {
	if nickname == "" {
		return errors.New("nickname is required")
	}
	length := len([]rune(nickname))
	if length < 2 || length > 15 {
		return errors.New("nickname must be 2-15 characters")
	}
	if ContainsSpecialCharacter(nickname) || strings.ContainsAny(nickname, " \t") {
		return errors.New("special characters are not allowed")
	}
	return nil
}
