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

// ProfileTestSuite covers profile editing and the profile tabs
type ProfileTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	handlers  *Handlers
	testUser  *models.User
	otherUser *models.User
}

func (suite *ProfileTestSuite) SetupSuite() {
	suite.db = openTestDB(suite.T())

	suite.handlers = NewHandlers(nil, nil, nil)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	api := suite.router.Group("/api/v1")
	api.GET("/users/:id", suite.handlers.GetUser)
	api.GET("/users/:id/items", suite.handlers.ListUserItems)
	api.GET("/users/:id/commented", suite.handlers.ListCommentedItems)
	api.PUT("/profile", testAuthMiddleware, suite.handlers.UpdateProfile)
}

func (suite *ProfileTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *ProfileTestSuite) SetupTest() {
	truncateAll(suite.db)

	testID := fmt.Sprintf("%d", time.Now().UnixNano())
	suite.testUser = &models.User{
		Email:         fmt.Sprintf("profile_%s@test.com", testID),
		Username:      fmt.Sprintf("profile_%s", testID),
		EmailVerified: true,
	}
	require.NoError(suite.T(), suite.db.Create(suite.testUser).Error)

	suite.otherUser = &models.User{
		Email:    fmt.Sprintf("taken_%s@test.com", testID),
		Username: fmt.Sprintf("taken_%s", testID),
		Nickname: fmt.Sprintf("tk%s", testID[len(testID)-8:]),
		Address:  "2 Test Street",
		City:     "Testville",
	}
	require.NoError(suite.T(), suite.db.Create(suite.otherUser).Error)
}

func (suite *ProfileTestSuite) updateProfile(userID string, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ProfileTestSuite) TestCompleteProfileReleasesGate() {
	w := suite.updateProfile(suite.testUser.ID, map[string]interface{}{
		"nickname": "bookworm",
		"address":  "5 Elm Street",
		"city":     "Portland",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		ProfileComplete bool `json:"profile_complete"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(suite.T(), resp.ProfileComplete)

	var reloaded models.User
	require.NoError(suite.T(), suite.db.First(&reloaded, "id = ?", suite.testUser.ID).Error)
	assert.Equal(suite.T(), "bookworm", reloaded.Nickname)
	assert.True(suite.T(), reloaded.ProfileComplete())
}

func (suite *ProfileTestSuite) TestNicknameConflictIsCaseInsensitive() {
	w := suite.updateProfile(suite.testUser.ID, map[string]interface{}{
		"nickname": suite.otherUser.Nickname,
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	upper := []byte(suite.otherUser.Nickname)
	upper[0] = upper[0] - ('a' - 'A')
	w = suite.updateProfile(suite.testUser.ID, map[string]interface{}{
		"nickname": string(upper),
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *ProfileTestSuite) TestNicknameRejectsSpecialCharacters() {
	w := suite.updateProfile(suite.testUser.ID, map[string]interface{}{
		"nickname": "book-worm",
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *ProfileTestSuite) TestGetUserReturnsPublicFieldsOnly() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+suite.otherUser.ID, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		User map[string]interface{} `json:"user"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), suite.otherUser.Nickname, resp.User["nickname"])
	assert.NotContains(suite.T(), resp.User, "email")
	assert.NotContains(suite.T(), resp.User, "address")
}

func (suite *ProfileTestSuite) TestCommentedItemsDeduplicated() {
	first := models.Item{SellerID: suite.otherUser.ID, Title: "Guitar", Price: 30000, Condition: models.ConditionGood}
	require.NoError(suite.T(), suite.db.Create(&first).Error)
	second := models.Item{SellerID: suite.otherUser.ID, Title: "Amp", Price: 15000, Condition: models.ConditionWorn}
	require.NoError(suite.T(), suite.db.Create(&second).Error)

	// Three comments on the first item, one on the second, newest on
	// the second item so it leads the tab
	for i := 0; i < 3; i++ {
		comment := models.Comment{ItemID: first.ID, UserID: suite.testUser.ID, Content: fmt.Sprintf("q%d", i)}
		require.NoError(suite.T(), suite.db.Create(&comment).Error)
		time.Sleep(5 * time.Millisecond)
	}
	last := models.Comment{ItemID: second.ID, UserID: suite.testUser.ID, Content: "latest"}
	require.NoError(suite.T(), suite.db.Create(&last).Error)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/commented", suite.testUser.ID), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Items []models.Item `json:"items"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(suite.T(), resp.Items, 2)
	assert.Equal(suite.T(), second.ID, resp.Items[0].ID)
	assert.Equal(suite.T(), first.ID, resp.Items[1].ID)
}

func (suite *ProfileTestSuite) TestCommentedItemsIgnoreDeletedComments() {
	item := models.Item{SellerID: suite.otherUser.ID, Title: "Lamp", Price: 2000, Condition: models.ConditionNew}
	require.NoError(suite.T(), suite.db.Create(&item).Error)
	comment := models.Comment{ItemID: item.ID, UserID: suite.testUser.ID, Content: "oops", IsDeleted: true}
	require.NoError(suite.T(), suite.db.Create(&comment).Error)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/commented", suite.testUser.ID), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Items []models.Item `json:"items"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(suite.T(), resp.Items)
}

func (suite *ProfileTestSuite) TestListUserItemsNewestFirst() {
	older := models.Item{SellerID: suite.testUser.ID, Title: "Old", Price: 100, Condition: models.ConditionWorn,
		CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(suite.T(), suite.db.Create(&older).Error)
	newer := models.Item{SellerID: suite.testUser.ID, Title: "New", Price: 100, Condition: models.ConditionNew}
	require.NoError(suite.T(), suite.db.Create(&newer).Error)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/items", suite.testUser.ID), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Items []models.Item `json:"items"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(suite.T(), resp.Items, 2)
	assert.Equal(suite.T(), "New", resp.Items[0].Title)
}

func TestProfileTestSuite(t *testing.T) {
	suite.Run(t, new(ProfileTestSuite))
}
