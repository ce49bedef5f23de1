package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// CommentTestSuite covers the comment thread handlers
type CommentTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	handlers  *Handlers
	testUser  *models.User
	otherUser *models.User
	testItem  *models.Item
}

func (suite *CommentTestSuite) SetupSuite() {
	suite.db = openTestDB(suite.T())

	suite.handlers = NewHandlers(nil, nil, nil)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	api := suite.router.Group("/api/v1")

	items := api.Group("/items")
	items.GET("/:id/comments", suite.handlers.ListComments)
	items.Use(testAuthMiddleware)
	items.POST("/:id/comments", suite.handlers.CreateComment)

	comments := api.Group("/comments")
	comments.Use(testAuthMiddleware)
	comments.PUT("/:id", suite.handlers.UpdateComment)
	comments.DELETE("/:id", suite.handlers.DeleteComment)
}

func (suite *CommentTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *CommentTestSuite) SetupTest() {
	truncateAll(suite.db)

	testID := fmt.Sprintf("%d", time.Now().UnixNano())
	suite.testUser = &models.User{
		Email:         fmt.Sprintf("commenter_%s@test.com", testID),
		Username:      fmt.Sprintf("commenter_%s", testID),
		Nickname:      fmt.Sprintf("cm%s", testID[len(testID)-8:]),
		Address:       "1 Test Street",
		City:          "Testville",
		EmailVerified: true,
	}
	require.NoError(suite.T(), suite.db.Create(suite.testUser).Error)

	suite.otherUser = &models.User{
		Email:    fmt.Sprintf("other_%s@test.com", testID),
		Username: fmt.Sprintf("other_%s", testID),
		Nickname: fmt.Sprintf("ot%s", testID[len(testID)-8:]),
	}
	require.NoError(suite.T(), suite.db.Create(suite.otherUser).Error)

	suite.testItem = &models.Item{
		SellerID:  suite.testUser.ID,
		Title:     "Road bike",
		Price:     85000,
		Condition: models.ConditionLikeNew,
	}
	require.NoError(suite.T(), suite.db.Create(suite.testItem).Error)
}

func (suite *CommentTestSuite) postComment(itemID, userID, content string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"content": content})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/items/%s/comments", itemID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *CommentTestSuite) TestCreateCommentIncrementsCount() {
	w := suite.postComment(suite.testItem.ID, suite.testUser.ID, "Does it come with pedals?")
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "Does it come with pedals?", resp.Comment.Content)
	assert.Equal(suite.T(), suite.testUser.ID, resp.Comment.UserID)
	assert.Equal(suite.T(), suite.testUser.Username, resp.Comment.User.Username)

	var item models.Item
	require.NoError(suite.T(), suite.db.First(&item, "id = ?", suite.testItem.ID).Error)
	assert.Equal(suite.T(), 1, item.CommentCount)
}

func (suite *CommentTestSuite) TestCreateCommentValidation() {
	w := suite.postComment(suite.testItem.ID, suite.testUser.ID, "")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.postComment("00000000-0000-0000-0000-000000000000", suite.testUser.ID, "hello")
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *CommentTestSuite) TestListCommentsOldestFirstSkipsDeleted() {
	first := models.Comment{ItemID: suite.testItem.ID, UserID: suite.testUser.ID, Content: "first"}
	require.NoError(suite.T(), suite.db.Create(&first).Error)
	time.Sleep(10 * time.Millisecond)
	removed := models.Comment{ItemID: suite.testItem.ID, UserID: suite.testUser.ID, Content: "removed", IsDeleted: true}
	require.NoError(suite.T(), suite.db.Create(&removed).Error)
	time.Sleep(10 * time.Millisecond)
	last := models.Comment{ItemID: suite.testItem.ID, UserID: suite.otherUser.ID, Content: "last"}
	require.NoError(suite.T(), suite.db.Create(&last).Error)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/items/%s/comments", suite.testItem.ID), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Comments []models.Comment `json:"comments"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(suite.T(), resp.Comments, 2)
	assert.Equal(suite.T(), "first", resp.Comments[0].Content)
	assert.Equal(suite.T(), "last", resp.Comments[1].Content)
}

func (suite *CommentTestSuite) TestUpdateCommentMarksEdited() {
	comment := models.Comment{ItemID: suite.testItem.ID, UserID: suite.testUser.ID, Content: "original"}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	body, _ := json.Marshal(map[string]string{"content": "corrected"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/comments/"+comment.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", suite.testUser.ID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Comment
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", comment.ID).Error)
	assert.Equal(suite.T(), "corrected", reloaded.Content)
	assert.True(suite.T(), reloaded.IsEdited)
	require.NotNil(suite.T(), reloaded.EditedAt)
}

func (suite *CommentTestSuite) TestUpdateCommentOnlyAuthor() {
	comment := models.Comment{ItemID: suite.testItem.ID, UserID: suite.testUser.ID, Content: "mine"}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	body, _ := json.Marshal(map[string]string{"content": "hijacked"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/comments/"+comment.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", suite.otherUser.ID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *CommentTestSuite) TestDeleteCommentSoftDeletes() {
	require.NoError(suite.T(), suite.db.Model(suite.testItem).UpdateColumn("comment_count", 1).Error)
	comment := models.Comment{ItemID: suite.testItem.ID, UserID: suite.testUser.ID, Content: "going away"}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	like := models.Like{
		UserID:     suite.otherUser.ID,
		TargetType: models.LikeTargetComment,
		TargetID:   comment.ID,
	}
	require.NoError(suite.T(), suite.db.Create(&like).Error)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/comments/"+comment.ID, nil)
	req.Header.Set("X-User-ID", suite.testUser.ID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	// Row survives with the deleted flag so the thread keeps its shape
	var reloaded models.Comment
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", comment.ID).Error)
	assert.True(suite.T(), reloaded.IsDeleted)

	var likeCount int64
	suite.db.Model(&models.Like{}).Where("target_id = ?", comment.ID).Count(&likeCount)
	assert.Equal(suite.T(), int64(0), likeCount)

	var item models.Item
	require.NoError(suite.T(), suite.db.First(&item, "id = ?", suite.testItem.ID).Error)
	assert.Equal(suite.T(), 0, item.CommentCount)
}

func (suite *CommentTestSuite) TestDeletedCommentCannotBeEdited() {
	comment := models.Comment{ItemID: suite.testItem.ID, UserID: suite.testUser.ID, Content: "gone", IsDeleted: true}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	body, _ := json.Marshal(map[string]string{"content": "resurrected"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/comments/"+comment.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", suite.testUser.ID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func TestCommentTestSuite(t *testing.T) {
	suite.Run(t, new(CommentTestSuite))
}
