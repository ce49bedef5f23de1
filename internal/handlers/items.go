package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/database"
	apierrors "github.com/relist-market/backend/internal/errors"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/metrics"
	"github.com/relist-market/backend/internal/middleware"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
	"gorm.io/gorm"
)

// maxImageBytes caps a single uploaded photo at 10 MB
const maxImageBytes = 10 << 20

// maxImagesPerItem caps how many photos one listing can carry
const maxImagesPerItem = 10

// itemView is an Item plus the viewer's like state
type itemView struct {
	models.Item
	Liked bool `json:"liked"`
}

type itemListResponse struct {
	Items      []itemView `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalItems int64      `json:"total_items"`
	TotalPages int        `json:"total_pages"`
}

// ListItems returns one page of listings, newest first
// GET /api/v1/items?page=N
func (h *Handlers) ListItems(c *gin.Context) {
	page := util.ParsePage(c.Query("page"))
	userID, authenticated := c.Get("user_id")

	// Anonymous listing pages are identical for everyone and cacheable
	cacheKey := fmt.Sprintf("items:page:%d", page)
	if !authenticated && h.redis != nil {
		if cached, err := h.redis.Get(c.Request.Context(), cacheKey); err == nil {
			middleware.RecordCacheHit("item_listing")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			return
		}
		middleware.RecordCacheMiss("item_listing")
	}

	var total int64
	if err := database.DB.Model(&models.Item{}).Count(&total).Error; err != nil {
		logger.ErrorWithFields("Failed to count items", err)
		util.RespondInternalError(c, "Failed to load items")
		return
	}

	var items []models.Item
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Seller").
		Order("created_at DESC").
		Limit(ItemsPerPage).
		Offset((page - 1) * ItemsPerPage).
		Find(&items).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load items", err)
		util.RespondInternalError(c, "Failed to load items")
		return
	}

	views := h.attachLikeState(items, userID, authenticated)

	totalPages := int((total + ItemsPerPage - 1) / ItemsPerPage)
	resp := itemListResponse{
		Items:      views,
		Page:       page,
		PerPage:    ItemsPerPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	if !authenticated && h.redis != nil {
		if body, err := json.Marshal(resp); err == nil {
			// Best effort; a failed cache write only costs the next reader a query
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = h.redis.SetEx(ctx, cacheKey, body, listingCacheTTL)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetItem returns a single listing with its images and seller
// GET /api/v1/items/:id
func (h *Handlers) GetItem(c *gin.Context) {
	itemID := c.Param("id")

	var item models.Item
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Seller").
		First(&item, "id = ?", itemID).Error
	if err != nil {
		util.RespondNotFound(c, "item")
		return
	}

	view := itemView{Item: item}
	if userID, ok := c.Get("user_id"); ok {
		var count int64
		database.DB.Model(&models.Like{}).
			Where("user_id = ? AND target_type = ? AND target_id = ?", userID, models.LikeTargetItem, itemID).
			Count(&count)
		view.Liked = count > 0
	}

	c.JSON(http.StatusOK, gin.H{"item": view})
}

// CreateItem creates a listing. Sellers must have a verified email.
// POST /api/v1/items
func (h *Handlers) CreateItem(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if !user.EmailVerified {
		util.RespondWithAPIError(c, apierrors.EmailUnverified())
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required,min=1,max=120"`
		Description string `json:"description" binding:"max=4000"`
		Price       int64  `json:"price" binding:"required,min=0"`
		Condition   string `json:"condition" binding:"required"`
		Location    string `json:"location" binding:"max=80"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	condition := models.ItemCondition(req.Condition)
	if !condition.Valid() {
		util.RespondValidationError(c, "condition", "must be one of: new, like_new, good, worn")
		return
	}

	item := models.Item{
		SellerID:    user.ID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Condition:   condition,
		Location:    req.Location,
	}

	if err := database.DB.Create(&item).Error; err != nil {
		logger.ErrorWithFields("Failed to create item", err)
		util.RespondInternalError(c, "Failed to create item")
		return
	}

	metrics.Get().ItemsCreatedTotal.WithLabelValues(string(condition)).Inc()
	h.invalidateListingCache(c.Request.Context())

	logger.InfoWithFields("Item created", logger.WithUserID(user.ID), logger.WithItemID(item.ID))
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// UpdateItem edits a listing. Only the seller may edit.
// PUT /api/v1/items/:id
func (h *Handlers) UpdateItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	item, ok := h.ownedItem(c, userID)
	if !ok {
		return
	}

	var req struct {
		Title       *string `json:"title" binding:"omitempty,min=1,max=120"`
		Description *string `json:"description" binding:"omitempty,max=4000"`
		Price       *int64  `json:"price" binding:"omitempty,min=0"`
		Condition   *string `json:"condition"`
		Location    *string `json:"location" binding:"omitempty,max=80"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Condition != nil {
		condition := models.ItemCondition(*req.Condition)
		if !condition.Valid() {
			util.RespondValidationError(c, "condition", "must be one of: new, like_new, good, worn")
			return
		}
		updates["condition"] = condition
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}

	if len(updates) == 0 {
		util.RespondBadRequest(c, "no fields to update")
		return
	}

	if err := database.DB.Model(item).Updates(updates).Error; err != nil {
		logger.ErrorWithFields("Failed to update item", err)
		util.RespondInternalError(c, "Failed to update item")
		return
	}

	h.invalidateListingCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// SetItemSold flips or sets the sold flag on a listing
// POST /api/v1/items/:id/sold
func (h *Handlers) SetItemSold(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	item, ok := h.ownedItem(c, userID)
	if !ok {
		return
	}

	var req struct {
		Sold *bool `json:"sold"`
	}
	// An empty body is a plain toggle request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.RespondBadRequest(c, err.Error())
		return
	}

	// Absent body field means toggle
	sold := !item.Sold
	if req.Sold != nil {
		sold = *req.Sold
	}

	if err := database.DB.Model(item).Update("sold", sold).Error; err != nil {
		logger.ErrorWithFields("Failed to update sold state", err)
		util.RespondInternalError(c, "Failed to update item")
		return
	}

	h.invalidateListingCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"id": item.ID, "sold": sold})
}

// DeleteItem removes a listing and its stored photos
// DELETE /api/v1/items/:id
func (h *Handlers) DeleteItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	item, ok := h.ownedItem(c, userID)
	if !ok {
		return
	}

	var images []models.ItemImage
	database.DB.Where("item_id = ?", item.ID).Find(&images)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.ItemImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.LikeTargetItem, item.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to delete item", err)
		util.RespondInternalError(c, "Failed to delete item")
		return
	}

	// Photos are deleted after the row so a storage failure never leaves
	// a listing pointing at missing files
	for _, img := range images {
		if h.images != nil && img.URL != "" {
			if err := h.images.DeleteImage(c.Request.Context(), imageKeyFromURL(img.URL)); err != nil {
				logger.WarnWithFields("Failed to delete stored image", err)
			}
		}
	}

	h.invalidateListingCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UploadItemImage attaches a photo to a listing
// POST /api/v1/items/:id/images
func (h *Handlers) UploadItemImage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	item, ok := h.ownedItem(c, userID)
	if !ok {
		return
	}

	var count int64
	database.DB.Model(&models.ItemImage{}).Where("item_id = ?", item.ID).Count(&count)
	if count >= maxImagesPerItem {
		util.RespondBadRequest(c, fmt.Sprintf("a listing can have at most %d photos", maxImagesPerItem))
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		util.RespondBadRequest(c, "missing image file")
		return
	}
	if fileHeader.Size > maxImageBytes {
		util.RespondBadRequest(c, "image too large (10 MB max)")
		return
	}
	if !util.IsValidImageFile(fileHeader.Filename) {
		util.RespondValidationError(c, "image", "unsupported image type")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondInternalError(c, "Failed to read image")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		util.RespondInternalError(c, "Failed to read image")
		return
	}

	result, err := h.images.UploadImage(c.Request.Context(), data, userID, fileHeader.Filename)
	if err != nil {
		logger.ErrorWithFields("Image upload failed", err)
		util.RespondInternalError(c, "Failed to store image")
		return
	}

	image := models.ItemImage{
		ItemID:           item.ID,
		URL:              result.URL,
		OriginalFilename: fileHeader.Filename,
		Position:         int(count),
	}
	if err := database.DB.Create(&image).Error; err != nil {
		logger.ErrorWithFields("Failed to record image", err)
		util.RespondInternalError(c, "Failed to store image")
		return
	}

	h.invalidateListingCache(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"image": image})
}

// ownedItem loads the item in the path and verifies the caller sells it
func (h *Handlers) ownedItem(c *gin.Context, userID string) (*models.Item, bool) {
	var item models.Item
	if err := database.DB.First(&item, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "item")
		return nil, false
	}
	if item.SellerID != userID {
		util.RespondForbidden(c, "only the seller can modify a listing")
		return nil, false
	}
	return &item, true
}

// attachLikeState marks which of the listed items the viewer has liked
func (h *Handlers) attachLikeState(items []models.Item, userID interface{}, authenticated bool) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = itemView{Item: item}
	}
	if !authenticated || len(items) == 0 {
		return views
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	var likes []models.Like
	if err := database.DB.
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, models.LikeTargetItem, ids).
		Find(&likes).Error; err != nil {
		return views
	}

	liked := make(map[string]bool, len(likes))
	for _, like := range likes {
		liked[like.TargetID] = true
	}
	for i := range views {
		views[i].Liked = liked[views[i].ID]
	}
	return views
}

func (h *Handlers) invalidateListingCache(ctx context.Context) {
	if h.redis == nil {
		return
	}
	if err := h.redis.DelByPattern(ctx, "items:page:*"); err != nil {
		logger.WarnWithFields("Failed to invalidate listing cache", err)
	}
}

// imageKeyFromURL recovers the storage key from a stored public URL
func imageKeyFromURL(url string) string {
	if idx := strings.Index(url, "/items/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
