package auth

import (
	"errors"

	"github.com/relist-market/backend/internal/util"
)

// ErrWeakPassword is returned when a password fails the complexity policy
var ErrWeakPassword = errors.New(
	"password must be at least 8 characters long and include uppercase letters, " +
		"lowercase letters, numbers, and special characters")

// ValidatePassword enforces the signup password policy: at least 8 characters
// with at least one uppercase letter, one lowercase letter, one digit and one
// special character.
func ValidatePassword(password string) error {
	if len(password) < 8 ||
		!util.ContainsUppercaseLetter(password) ||
		!util.ContainsLowercaseLetter(password) ||
		!util.ContainsNumber(password) ||
		!util.ContainsSpecialCharacter(password) {
		return ErrWeakPassword
	}
	return nil
}
