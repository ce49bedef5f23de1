package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func gateTestRouter(user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if user != nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
		}
		c.Next()
	})
	router.Use(ProfileGate())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/", ok)
	router.GET("/items/:id", ok)
	router.GET("/profile/setup", ok)
	router.GET("/login", ok)
	router.GET("/api/v1/items", ok)
	return router
}

func gateGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProfileGateAllowsAnonymous(t *testing.T) {
	router := gateTestRouter(nil)
	assert.Equal(t, http.StatusOK, gateGet(router, "/").Code)
}

func TestProfileGateAllowsCompleteProfile(t *testing.T) {
	router := gateTestRouter(&models.User{
		ID:       "u1",
		Nickname: "bookworm",
		Address:  "5 Elm Street",
		City:     "Portland",
	})
	assert.Equal(t, http.StatusOK, gateGet(router, "/").Code)
	assert.Equal(t, http.StatusOK, gateGet(router, "/items/abc").Code)
}

func TestProfileGateRedirectsIncompleteProfile(t *testing.T) {
	router := gateTestRouter(&models.User{ID: "u1", Nickname: "bookworm"})

	w := gateGet(router, "/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/setup", w.Header().Get("Location"))

	w = gateGet(router, "/items/abc")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestProfileGateExemptsSetupAndAuthPages(t *testing.T) {
	router := gateTestRouter(&models.User{ID: "u1"})
	assert.Equal(t, http.StatusOK, gateGet(router, "/profile/setup").Code)
	assert.Equal(t, http.StatusOK, gateGet(router, "/login").Code)
}

func TestProfileGatePassesAPIRequests(t *testing.T) {
	router := gateTestRouter(&models.User{ID: "u1"})
	assert.Equal(t, http.StatusOK, gateGet(router, "/api/v1/items").Code)
}
