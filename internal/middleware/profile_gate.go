package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/util"
)

// profileExemptPrefixes are paths a signed-in user with an incomplete
// profile may still reach. Everything else redirects to profile setup.
var profileExemptPrefixes = []string{
	"/profile/setup",
	"/login",
	"/signup",
	"/logout",
	"/auth/",
	"/static/",
	"/media/",
	"/healthz",
	"/metrics",
}

// ProfileGate forces signed-in users to finish their profile (nickname,
// address and city) before browsing the rest of the site. Anonymous
// visitors and API calls pass through, the gate only steers pages.
func ProfileGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.CurrentUser(c)
		if !ok || user == nil {
			c.Next()
			return
		}

		if user.ProfileComplete() {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			c.Next()
			return
		}
		for _, prefix := range profileExemptPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		c.Redirect(http.StatusFound, "/profile/setup")
		c.Abort()
	}
}
