package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/relist-market/backend/internal/errors"
	"github.com/relist-market/backend/internal/util"
)

// CSRFCookieName is the readable (not HTTP-only) cookie the browser
// client echoes back in the X-CSRFToken header on state-changing requests
const CSRFCookieName = "csrftoken"

// CSRFHeaderName is the header carrying the echoed token
const CSRFHeaderName = "X-CSRFToken"

const csrfTokenBytes = 32

// csrfCookieMaxAge keeps the token stable across visits, a year like Django
const csrfCookieMaxAge = 365 * 24 * 60 * 60

// NewCSRFToken generates a random hex token
func NewCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// EnsureCSRFCookie sets the csrftoken cookie when the client has none.
// The cookie must stay readable by JavaScript so the client can mirror
// it into the request header.
func EnsureCSRFCookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := c.Cookie(CSRFCookieName); err != nil {
			token, genErr := NewCSRFToken()
			if genErr == nil {
				c.SetCookie(CSRFCookieName, token, csrfCookieMaxAge, "/", "", false, false)
				// Make the token visible to this request's handlers too
				c.Set("csrf_token", token)
			}
		}
		c.Next()
	}
}

// CSRF enforces the double-submit check on unsafe methods: the
// X-CSRFToken header must match the csrftoken cookie
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFCookieName)
		if err != nil || cookie == "" {
			util.RespondWithAPIError(c, apierrors.CSRFMismatch())
			c.Abort()
			return
		}

		header := c.GetHeader(CSRFHeaderName)
		if subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			util.RespondWithAPIError(c, apierrors.CSRFMismatch())
			c.Abort()
			return
		}

		c.Next()
	}
}
