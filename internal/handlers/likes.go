package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/metrics"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
	"gorm.io/gorm"
)

// likeResponse is the wire shape heart buttons consume: the viewer's
// state after the toggle plus the fresh total
type likeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ToggleLike flips the caller's like on an item or comment. Repeating
// the request flips it back; the response always reflects the state
// after this call, so with concurrent tabs the last response wins.
// POST /api/v1/likes/:target_type/:target_id/toggle
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	targetType := models.LikeTargetType(c.Param("target_type"))
	if !targetType.Valid() {
		util.RespondValidationError(c, "target_type", "must be item or comment")
		return
	}
	targetID := c.Param("target_id")

	if !targetExists(targetType, targetID) {
		util.RespondNotFound(c, string(targetType))
		return
	}

	var liked bool
	var likeCount int

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
			First(&existing).Error

		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := models.Like{
				UserID:     userID,
				TargetType: targetType,
				TargetID:   targetID,
			}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}

		// Recount instead of increment so the cached column self-heals
		var count int64
		if err := tx.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ?", targetType, targetID).
			Count(&count).Error; err != nil {
			return err
		}
		likeCount = int(count)

		return tx.Model(targetModel(targetType)).
			Where("id = ?", targetID).
			UpdateColumn("like_count", likeCount).Error
	})
	if err != nil {
		logger.ErrorWithFields("Like toggle failed", err)
		util.RespondInternalError(c, "Failed to toggle like")
		return
	}

	result := "unliked"
	if liked {
		result = "liked"
	}
	metrics.Get().LikeTogglesTotal.WithLabelValues(string(targetType), result).Inc()

	c.JSON(http.StatusOK, likeResponse{Liked: liked, LikeCount: likeCount})
}

// ListUserLikes returns the items a user has liked, newest like first
// GET /api/v1/users/:id/likes
func (h *Handlers) ListUserLikes(c *gin.Context) {
	userID := c.Param("id")
	page := util.ParsePage(c.Query("page"))

	var likes []models.Like
	err := database.DB.
		Where("user_id = ? AND target_type = ?", userID, models.LikeTargetItem).
		Order("created_at DESC").
		Limit(ItemsPerPage).
		Offset((page - 1) * ItemsPerPage).
		Find(&likes).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load likes", err)
		util.RespondInternalError(c, "Failed to load liked items")
		return
	}

	ids := make([]string, len(likes))
	for i, like := range likes {
		ids[i] = like.TargetID
	}

	var items []models.Item
	if len(ids) > 0 {
		if err := database.DB.
			Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Preload("Seller").
			Where("id IN ?", ids).
			Find(&items).Error; err != nil {
			logger.ErrorWithFields("Failed to load liked items", err)
			util.RespondInternalError(c, "Failed to load liked items")
			return
		}
	}

	// Preserve like order; the IN query returns rows unordered
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

func targetExists(targetType models.LikeTargetType, targetID string) bool {
	var count int64
	switch targetType {
	case models.LikeTargetItem:
		database.DB.Model(&models.Item{}).Where("id = ?", targetID).Count(&count)
	case models.LikeTargetComment:
		database.DB.Model(&models.Comment{}).Where("id = ? AND is_deleted = false", targetID).Count(&count)
	}
	return count > 0
}

func targetModel(targetType models.LikeTargetType) interface{} {
	if targetType == models.LikeTargetComment {
		return &models.Comment{}
	}
	return &models.Item{}
}
