package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNickname(t *testing.T) {
	testCases := []struct {
		name     string
		nickname string
		valid    bool
	}{
		{"simple", "bookworm", true},
		{"with digits", "seller99", true},
		{"minimum length", "ab", true},
		{"maximum length", "abcdefghijklmno", true},
		{"unicode letters", "판매자", true},
		{"empty", "", false},
		{"too short", "a", false},
		{"too long", "abcdefghijklmnop", false},
		{"hyphen", "book-worm", false},
		{"space", "book worm", false},
		{"emoji", "seller🔥", false},
		{"at sign", "seller@home", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNickname(tc.nickname)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsValidImageFile(t *testing.T) {
	assert.True(t, IsValidImageFile("photo.jpg"))
	assert.True(t, IsValidImageFile("photo.JPEG"))
	assert.True(t, IsValidImageFile("scan.png"))
	assert.True(t, IsValidImageFile("anim.gif"))
	assert.True(t, IsValidImageFile("modern.webp"))
	assert.False(t, IsValidImageFile("document.pdf"))
	assert.False(t, IsValidImageFile("script.jpg.exe"))
	assert.False(t, IsValidImageFile("noextension"))
}

func TestCharacterClassHelpers(t *testing.T) {
	assert.True(t, ContainsUppercaseLetter("aBc"))
	assert.False(t, ContainsUppercaseLetter("abc1!"))

	assert.True(t, ContainsLowercaseLetter("ABc"))
	assert.False(t, ContainsLowercaseLetter("ABC1!"))

	assert.True(t, ContainsNumber("abc1"))
	assert.False(t, ContainsNumber("abc!"))

	assert.True(t, ContainsSpecialCharacter("abc!"))
	assert.True(t, ContainsSpecialCharacter("pass+word"))
	assert.False(t, ContainsSpecialCharacter("abc123"))
}
