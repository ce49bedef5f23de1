package handlers

import (
	"time"

	"github.com/relist-market/backend/internal/auth"
	"github.com/relist-market/backend/internal/cache"
	"github.com/relist-market/backend/internal/email"
	"github.com/relist-market/backend/internal/storage"
)

// ItemsPerPage is the fixed page size for item listings
const ItemsPerPage = 8

// listingCacheTTL bounds staleness of the cached first listing pages
const listingCacheTTL = 30 * time.Second

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth   *auth.Service
	mailer email.Sender
	images storage.ImageStore
	redis  *cache.RedisClient

	// secureCookies marks session cookies Secure in production
	secureCookies bool
}

// NewHandlers creates a new handlers instance
func NewHandlers(authService *auth.Service, mailer email.Sender, images storage.ImageStore) *Handlers {
	return &Handlers{
		auth:   authService,
		mailer: mailer,
		images: images,
	}
}

// SetRedisClient enables listing page caching
func (h *Handlers) SetRedisClient(redis *cache.RedisClient) {
	h.redis = redis
}

// SetSecureCookies controls the Secure flag on session cookies
func (h *Handlers) SetSecureCookies(secure bool) {
	h.secureCookies = secure
}
