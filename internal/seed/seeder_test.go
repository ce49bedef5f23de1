package seed

import (
	"strings"
	"testing"

	"github.com/relist-market/backend/internal/util"
	"github.com/stretchr/testify/assert"
)

func TestPlaceholderImageURL(t *testing.T) {
	url := placeholderImageURL(640, 480)

	assert.True(t, strings.HasPrefix(url, "https://picsum.photos/seed/"), url)
	assert.True(t, strings.HasSuffix(url, "/640/480"), url)

	// The random seed segment keeps images distinct across records.
	assert.NotEqual(t, url, placeholderImageURL(640, 480))
}

func TestNicknameFor(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"demo", "demo"},
		{"Seller_99", "eller99"},
		{"averyverylongusername42", "averyverylongus"},
		{"x", "sellerx"},
	}

	for _, tt := range tests {
		got := nicknameFor(tt.username)
		assert.Equal(t, tt.want, got, tt.username)
		assert.NoError(t, util.ValidateNickname(got), "nickname %q from %q should pass validation", got, tt.username)
	}
}
