package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/auth"
	"github.com/relist-market/backend/internal/middleware"
	"github.com/relist-market/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// LikeTestSuite covers the generic like toggle
type LikeTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	testUser *models.User
	testItem *models.Item
}

func (suite *LikeTestSuite) SetupSuite() {
	suite.db = openTestDB(suite.T())

	authService := auth.NewService([]byte("test-secret"), nil)
	suite.handlers = NewHandlers(authService, nil, nil)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	api := suite.router.Group("/api/v1")

	likes := api.Group("/likes")
	likes.Use(testAuthMiddleware)
	likes.POST("/:target_type/:target_id/toggle", suite.handlers.ToggleLike)

	users := api.Group("/users")
	users.GET("/:id/likes", suite.handlers.ListUserLikes)

	// The real route guards the toggle with the 403 variant of the auth
	// middleware so the browser client can distinguish "sign in first"
	// from a failed call
	guarded := suite.router.Group("/guarded")
	guarded.Use(middleware.AuthForbidden(authService))
	guarded.POST("/likes/:target_type/:target_id/toggle", suite.handlers.ToggleLike)
}

func (suite *LikeTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *LikeTestSuite) SetupTest() {
	truncateAll(suite.db)

	testID := fmt.Sprintf("%d", time.Now().UnixNano())
	suite.testUser = &models.User{
		Email:         fmt.Sprintf("liker_%s@test.com", testID),
		Username:      fmt.Sprintf("liker_%s", testID),
		Nickname:      fmt.Sprintf("lk%s", testID[len(testID)-8:]),
		Address:       "1 Test Street",
		City:          "Testville",
		EmailVerified: true,
	}
	require.NoError(suite.T(), suite.db.Create(suite.testUser).Error)

	suite.testItem = &models.Item{
		SellerID:  suite.testUser.ID,
		Title:     "Vintage lamp",
		Price:     4500,
		Condition: models.ConditionGood,
	}
	require.NoError(suite.T(), suite.db.Create(suite.testItem).Error)
}

func (suite *LikeTestSuite) toggle(targetType, targetID, userID string) *httptest.ResponseRecorder {
	url := fmt.Sprintf("/api/v1/likes/%s/%s/toggle", targetType, targetID)
	req := httptest.NewRequest(http.MethodPost, url, nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *LikeTestSuite) TestToggleItemLikeOnAndOff() {
	w := suite.toggle("item", suite.testItem.ID, suite.testUser.ID)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Liked     bool `json:"liked"`
		LikeCount int  `json:"like_count"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(suite.T(), resp.Liked)
	assert.Equal(suite.T(), 1, resp.LikeCount)

	var item models.Item
	require.NoError(suite.T(), suite.db.First(&item, "id = ?", suite.testItem.ID).Error)
	assert.Equal(suite.T(), 1, item.LikeCount)

	// Second toggle removes the like
	w = suite.toggle("item", suite.testItem.ID, suite.testUser.ID)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(suite.T(), resp.Liked)
	assert.Equal(suite.T(), 0, resp.LikeCount)

	var likeCount int64
	suite.db.Model(&models.Like{}).Where("target_id = ?", suite.testItem.ID).Count(&likeCount)
	assert.Equal(suite.T(), int64(0), likeCount)
}

func (suite *LikeTestSuite) TestToggleCommentLike() {
	comment := models.Comment{
		ItemID:  suite.testItem.ID,
		UserID:  suite.testUser.ID,
		Content: "Is this still available?",
	}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	w := suite.toggle("comment", comment.ID, suite.testUser.ID)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), true, resp["liked"])
	assert.Equal(suite.T(), float64(1), resp["like_count"])

	var reloaded models.Comment
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", comment.ID).Error)
	assert.Equal(suite.T(), 1, reloaded.LikeCount)
}

func (suite *LikeTestSuite) TestCountSelfHealsOnToggle() {
	// Simulate a drifted cached counter
	require.NoError(suite.T(), suite.db.Model(suite.testItem).UpdateColumn("like_count", 42).Error)

	w := suite.toggle("item", suite.testItem.ID, suite.testUser.ID)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), float64(1), resp["like_count"])

	var item models.Item
	require.NoError(suite.T(), suite.db.First(&item, "id = ?", suite.testItem.ID).Error)
	assert.Equal(suite.T(), 1, item.LikeCount)
}

func (suite *LikeTestSuite) TestInvalidTargetType() {
	w := suite.toggle("seller", suite.testUser.ID, suite.testUser.ID)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *LikeTestSuite) TestMissingTarget() {
	w := suite.toggle("item", "00000000-0000-0000-0000-000000000000", suite.testUser.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *LikeTestSuite) TestDeletedCommentCannotBeLiked() {
	comment := models.Comment{
		ItemID:    suite.testItem.ID,
		UserID:    suite.testUser.ID,
		Content:   "gone",
		IsDeleted: true,
	}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	w := suite.toggle("comment", comment.ID, suite.testUser.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *LikeTestSuite) TestAnonymousToggleGets403WithLoginURL() {
	url := fmt.Sprintf("/guarded/likes/item/%s/toggle", suite.testItem.ID)
	req := httptest.NewRequest(http.MethodPost, url, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	require.Equal(suite.T(), http.StatusForbidden, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "/login", resp["login_url"])
}

func (suite *LikeTestSuite) TestListUserLikesNewestFirst() {
	second := models.Item{
		SellerID:  suite.testUser.ID,
		Title:     "Desk chair",
		Price:     12000,
		Condition: models.ConditionWorn,
	}
	require.NoError(suite.T(), suite.db.Create(&second).Error)

	w := suite.toggle("item", suite.testItem.ID, suite.testUser.ID)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	// Ensure distinct created_at ordering
	time.Sleep(10 * time.Millisecond)
	w = suite.toggle("item", second.ID, suite.testUser.ID)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/likes", suite.testUser.ID), nil)
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	require.Equal(suite.T(), http.StatusOK, rec.Code)

	var resp struct {
		Items []models.Item `json:"items"`
	}
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(suite.T(), resp.Items, 2)
	assert.Equal(suite.T(), second.ID, resp.Items[0].ID)
	assert.Equal(suite.T(), suite.testItem.ID, resp.Items[1].ID)
}

func TestLikeTestSuite(t *testing.T) {
	suite.Run(t, new(LikeTestSuite))
}
