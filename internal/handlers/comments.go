package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/metrics"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
	"gorm.io/gorm"
)

// commentsPerPage matches the listing page size
const commentsPerPage = 20

// CreateComment adds a comment to an item
// POST /api/v1/items/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	itemID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var item models.Item
	if err := database.DB.First(&item, "id = ?", itemID).Error; err != nil {
		util.RespondNotFound(c, "item")
		return
	}

	comment := models.Comment{
		ItemID:  itemID,
		UserID:  userID,
		Content: req.Content,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&item).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to create comment", err)
		util.RespondInternalError(c, "Failed to create comment")
		return
	}

	if err := database.DB.Preload("User").First(&comment, "id = ?", comment.ID).Error; err != nil {
		logger.WarnWithFields("Failed to load comment author", err)
	}

	metrics.Get().CommentsTotal.WithLabelValues("create").Inc()
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// ListComments retrieves comments for an item, oldest first so the
// thread reads top to bottom
// GET /api/v1/items/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	itemID := c.Param("id")
	page := util.ParsePage(c.Query("page"))

	var item models.Item
	if err := database.DB.First(&item, "id = ?", itemID).Error; err != nil {
		util.RespondNotFound(c, "item")
		return
	}

	var comments []models.Comment
	err := database.DB.
		Preload("User").
		Where("item_id = ? AND is_deleted = false", itemID).
		Order("created_at ASC").
		Limit(commentsPerPage).
		Offset((page - 1) * commentsPerPage).
		Find(&comments).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load comments", err)
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"page":     page,
		"per_page": commentsPerPage,
	})
}

// UpdateComment edits a comment's text and marks it edited. Only the
// author may edit, and deleted comments stay frozen.
// PUT /api/v1/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	comment, ok := h.ownedComment(c, userID)
	if !ok {
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"content":   req.Content,
		"is_edited": true,
		"edited_at": &now,
	}
	if err := database.DB.Model(comment).Updates(updates).Error; err != nil {
		logger.ErrorWithFields("Failed to update comment", err)
		util.RespondInternalError(c, "Failed to update comment")
		return
	}

	if err := database.DB.Preload("User").First(comment, "id = ?", comment.ID).Error; err != nil {
		logger.WarnWithFields("Failed to reload comment", err)
	}

	metrics.Get().CommentsTotal.WithLabelValues("edit").Inc()
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment soft deletes a comment so the thread keeps its shape
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	comment, ok := h.ownedComment(c, userID)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(comment).Update("is_deleted", true).Error; err != nil {
			return err
		}
		// Likes on a removed comment no longer count anywhere
		if err := tx.Where("target_type = ? AND target_id = ?", models.LikeTargetComment, comment.ID).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Item{}).
			Where("id = ?", comment.ItemID).
			UpdateColumn("comment_count", gorm.Expr("GREATEST(comment_count - 1, 0)")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to delete comment", err)
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	metrics.Get().CommentsTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ownedComment loads the comment in the path and verifies authorship
func (h *Handlers) ownedComment(c *gin.Context, userID string) (*models.Comment, bool) {
	var comment models.Comment
	if err := database.DB.First(&comment, "id = ? AND is_deleted = false", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return nil, false
	}
	if comment.UserID != userID {
		util.RespondForbidden(c, "only the author can modify a comment")
		return nil, false
	}
	return &comment, true
}
