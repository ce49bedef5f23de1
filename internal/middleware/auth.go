package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/auth"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
)

// SessionCookieName is the HTTP-only cookie carrying the auth token
const SessionCookieName = "relist_session"

// TokenFromRequest extracts the auth token from the session cookie or,
// failing that, a Bearer Authorization header.
func TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// Auth requires a valid token and rejects API requests with 401
func Auth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, svc)
		if err != nil {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// AuthForbidden requires a valid token and rejects with 403.
// The like toggle contract uses 403 so browser clients know to send
// the user to the login page rather than retry with credentials.
func AuthForbidden(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, svc)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "authentication required",
				"login_url": "/login",
			})
			return
		}
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and
// passes anonymous requests through untouched
func OptionalAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := authenticate(c, svc); err == nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
		}
		c.Next()
	}
}

// PageAuth protects server-rendered pages, redirecting anonymous
// visitors to the login page with the original path in ?next=
func PageAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, svc)
		if err != nil {
			next := url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, "/login?next="+next)
			c.Abort()
			return
		}
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// AdminOnly restricts a route to admin users. Must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			return
		}
		if !user.IsAdmin {
			util.RespondForbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, svc *auth.Service) (*models.User, error) {
	token := TokenFromRequest(c)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return svc.ValidateToken(token)
}
