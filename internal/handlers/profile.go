package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
	"gorm.io/gorm"
)

// publicProfile is the subset of User exposed to other users
type publicProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	City      string `json:"city"`
	AvatarURL string `json:"avatar_url"`
}

// GetUser returns a public profile
// GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": publicProfile{
		ID:        user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		City:      user.City,
		AvatarURL: user.AvatarURL,
	}})
}

// UpdateProfile edits the caller's profile fields. Finishing nickname,
// address and city here is what releases the profile gate.
// PUT /api/v1/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Nickname  *string `json:"nickname" binding:"omitempty,min=2,max=15"`
		Address   *string `json:"address" binding:"omitempty,max=40"`
		City      *string `json:"city" binding:"omitempty,max=40"`
		AvatarURL *string `json:"avatar_url" binding:"omitempty,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Nickname != nil && *req.Nickname != user.Nickname {
		if err := util.ValidateNickname(*req.Nickname); err != nil {
			util.RespondValidationError(c, "nickname", err.Error())
			return
		}
		var existing models.User
		err := database.DB.Where("LOWER(nickname) = LOWER(?) AND id != ?", *req.Nickname, user.ID).
			First(&existing).Error
		if err == nil {
			util.RespondConflict(c, "nickname")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondInternalError(c, "Failed to update profile")
			return
		}
		updates["nickname"] = *req.Nickname
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}

	if err := database.DB.Model(user).Updates(updates).Error; err != nil {
		logger.ErrorWithFields("Failed to update profile", err)
		util.RespondInternalError(c, "Failed to update profile")
		return
	}

	logger.InfoWithFields("Profile updated", logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{
		"user":             user,
		"profile_complete": user.ProfileComplete(),
	})
}

// ListUserItems returns the listings a user is selling, newest first.
// Backs the selling tab on profile pages.
// GET /api/v1/users/:id/items
func (h *Handlers) ListUserItems(c *gin.Context) {
	userID := c.Param("id")
	page := util.ParsePage(c.Query("page"))

	var items []models.Item
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("seller_id = ?", userID).
		Order("created_at DESC").
		Limit(ItemsPerPage).
		Offset((page - 1) * ItemsPerPage).
		Find(&items).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load user items", err)
		util.RespondInternalError(c, "Failed to load items")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"page":     page,
		"per_page": ItemsPerPage,
	})
}

// ListCommentedItems returns items the user commented on, one entry per
// item no matter how many comments they left, ordered by their most
// recent comment. Backs the comments tab on profile pages.
// GET /api/v1/users/:id/commented
func (h *Handlers) ListCommentedItems(c *gin.Context) {
	userID := c.Param("id")
	page := util.ParsePage(c.Query("page"))

	// Deduplicate in SQL: latest comment time per item, then page over that
	var ids []string
	err := database.DB.Model(&models.Comment{}).
		Select("item_id").
		Where("user_id = ? AND is_deleted = false", userID).
		Group("item_id").
		Order("MAX(created_at) DESC").
		Limit(ItemsPerPage).
		Offset((page - 1) * ItemsPerPage).
		Pluck("item_id", &ids).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load commented items", err)
		util.RespondInternalError(c, "Failed to load items")
		return
	}

	var items []models.Item
	if len(ids) > 0 {
		if err := database.DB.
			Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Preload("Seller").
			Where("id IN ?", ids).
			Find(&items).Error; err != nil {
			logger.ErrorWithFields("Failed to load commented items", err)
			util.RespondInternalError(c, "Failed to load items")
			return
		}
	}

	byID := make(map[string]models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	ordered := make([]models.Item, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    ordered,
		"page":     page,
		"per_page": ItemsPerPage,
	})
}
