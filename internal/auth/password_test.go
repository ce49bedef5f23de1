package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"meets policy", "Str0ng!pass", true},
		{"exactly eight chars", "Aa1!Aa1!", true},
		{"too short", "Aa1!Aa1", false},
		{"no uppercase", "weak1!pass", false},
		{"no lowercase", "WEAK1!PASS", false},
		{"no digit", "Weakness!", false},
		{"no special character", "Weakness1", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}
