package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
	"gorm.io/gorm"
)

// commentThreadView decorates a comment with the viewer's like state
type commentThreadView struct {
	models.Comment
	Liked bool `json:"liked"`
}

// IndexPage renders the home page with one page of listings
// GET /
func (h *Handlers) IndexPage(c *gin.Context) {
	page := util.ParsePage(c.Query("page"))
	user, _ := util.CurrentUser(c)

	var total int64
	database.DB.Model(&models.Item{}).Count(&total)

	var items []models.Item
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Seller").
		Order("created_at DESC").
		Limit(ItemsPerPage).
		Offset((page - 1) * ItemsPerPage).
		Find(&items).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load items for index", err)
		c.String(http.StatusInternalServerError, "something went wrong")
		return
	}

	var userID interface{}
	if user != nil {
		userID = user.ID
	}
	views := h.attachLikeState(items, userID, user != nil)

	totalPages := int((total + ItemsPerPage - 1) / ItemsPerPage)
	if totalPages < 1 {
		totalPages = 1
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":      "Browse",
		"User":       user,
		"Items":      views,
		"Page":       page,
		"PrevPage":   page - 1,
		"NextPage":   page + 1,
		"TotalPages": totalPages,
	})
}

// ItemDetailPage renders a listing with its comment thread
// GET /items/:id
func (h *Handlers) ItemDetailPage(c *gin.Context) {
	user, _ := util.CurrentUser(c)

	var item models.Item
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Seller").
		First(&item, "id = ?", c.Param("id")).Error
	if err != nil {
		c.HTML(http.StatusNotFound, "not_found.html", gin.H{"Title": "Not found", "User": user})
		return
	}

	var comments []models.Comment
	database.DB.
		Preload("User").
		Where("item_id = ? AND is_deleted = false", item.ID).
		Order("created_at ASC").
		Find(&comments)

	liked := false
	commentViews := make([]commentThreadView, len(comments))
	for i, comment := range comments {
		commentViews[i] = commentThreadView{Comment: comment}
	}
	if user != nil {
		commentIDs := make([]string, len(comments))
		for i, comment := range comments {
			commentIDs[i] = comment.ID
		}
		// Only the likes this page can render, not the viewer's whole history
		query := database.DB.Where(
			"user_id = ? AND target_type = ? AND target_id = ?",
			user.ID, models.LikeTargetItem, item.ID,
		)
		if len(commentIDs) > 0 {
			query = query.Or(
				"user_id = ? AND target_type = ? AND target_id IN ?",
				user.ID, models.LikeTargetComment, commentIDs,
			)
		}
		var likes []models.Like
		query.Find(&likes)
		for _, like := range likes {
			if like.TargetType == models.LikeTargetItem && like.TargetID == item.ID {
				liked = true
			}
			if like.TargetType == models.LikeTargetComment {
				for i := range commentViews {
					if commentViews[i].ID == like.TargetID {
						commentViews[i].Liked = true
					}
				}
			}
		}
	}

	c.HTML(http.StatusOK, "item_detail.html", gin.H{
		"Title":    item.Title,
		"User":     user,
		"Item":     item,
		"Liked":    liked,
		"Comments": commentViews,
		"IsSeller": user != nil && user.ID == item.SellerID,
	})
}

// ItemFormPage renders the create or edit listing form
// GET /items/new, GET /items/:id/edit
func (h *Handlers) ItemFormPage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	data := gin.H{
		"Title":      "Sell an item",
		"User":       user,
		"Conditions": models.Conditions(),
	}

	if itemID := c.Param("id"); itemID != "" {
		var item models.Item
		if err := database.DB.First(&item, "id = ?", itemID).Error; err != nil {
			c.HTML(http.StatusNotFound, "not_found.html", gin.H{"Title": "Not found", "User": user})
			return
		}
		if item.SellerID != user.ID {
			c.Redirect(http.StatusFound, "/items/"+item.ID)
			return
		}
		data["Title"] = "Edit listing"
		data["Item"] = &item
	}

	c.HTML(http.StatusOK, "item_form.html", data)
}

// ProfilePage renders a user's profile with its three tabs
// GET /profile, GET /users/:id
func (h *Handlers) ProfilePage(c *gin.Context) {
	viewer, _ := util.CurrentUser(c)

	profileID := c.Param("id")
	if profileID == "" {
		if viewer == nil {
			c.Redirect(http.StatusFound, "/login?next=/profile")
			return
		}
		profileID = viewer.ID
	}

	var profile models.User
	if err := database.DB.First(&profile, "id = ?", profileID).Error; err != nil {
		c.HTML(http.StatusNotFound, "not_found.html", gin.H{"Title": "Not found", "User": viewer})
		return
	}

	var selling []models.Item
	database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("seller_id = ?", profile.ID).
		Order("created_at DESC").
		Limit(ItemsPerPage).
		Find(&selling)

	likedItems := h.likedItemsFor(profile.ID)
	commentedItems := h.commentedItemsFor(profile.ID)

	c.HTML(http.StatusOK, "profile.html", gin.H{
		"Title":          profile.Nickname,
		"User":           viewer,
		"Profile":        &profile,
		"IsSelf":         viewer != nil && viewer.ID == profile.ID,
		"SellingItems":   selling,
		"LikedItems":     likedItems,
		"CommentedItems": commentedItems,
	})
}

// ProfileSetupPage renders the profile completion form
// GET /profile/setup
func (h *Handlers) ProfileSetupPage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "profile_setup.html", gin.H{
		"Title": "Finish your profile",
		"User":  user,
	})
}

// LoginPage renders the login form
// GET /login
func (h *Handlers) LoginPage(c *gin.Context) {
	user, _ := util.CurrentUser(c)
	if user != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	next := c.Query("next")
	if !safeRedirect(next) {
		next = ""
	}
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Title":         "Log in",
		"Next":          next,
		"GoogleEnabled": h.auth.GoogleEnabled(),
	})
}

// SignupPage renders the registration form
// GET /signup
func (h *Handlers) SignupPage(c *gin.Context) {
	user, _ := util.CurrentUser(c)
	if user != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "signup.html", gin.H{
		"Title":         "Sign up",
		"GoogleEnabled": h.auth.GoogleEnabled(),
	})
}

// PasswordResetPage renders either the request form or, with a token
// in the query, the new password form
// GET /forgot-password, GET /reset-password
func (h *Handlers) PasswordResetPage(c *gin.Context) {
	c.HTML(http.StatusOK, "password_reset.html", gin.H{
		"Title": "Password reset",
		"Token": c.Query("token"),
	})
}

// VerifyEmailPage consumes the token from the confirmation mail link
// GET /verify-email
func (h *Handlers) VerifyEmailPage(c *gin.Context) {
	user, _ := util.CurrentUser(c)
	c.HTML(http.StatusOK, "verify_email.html", gin.H{
		"Title": "Confirm email",
		"User":  user,
		"Token": c.Query("token"),
	})
}

// NotFoundPage is the fallback for unknown paths
func (h *Handlers) NotFoundPage(c *gin.Context) {
	user, _ := util.CurrentUser(c)
	c.HTML(http.StatusNotFound, "not_found.html", gin.H{"Title": "Not found", "User": user})
}

func (h *Handlers) likedItemsFor(userID string) []models.Item {
	var likes []models.Like
	database.DB.
		Where("user_id = ? AND target_type = ?", userID, models.LikeTargetItem).
		Order("created_at DESC").
		Limit(ItemsPerPage).
		Find(&likes)

	ids := make([]string, len(likes))
	for i, like := range likes {
		ids[i] = like.TargetID
	}
	return itemsInOrder(ids)
}

func (h *Handlers) commentedItemsFor(userID string) []models.Item {
	var ids []string
	database.DB.Model(&models.Comment{}).
		Select("item_id").
		Where("user_id = ? AND is_deleted = false", userID).
		Group("item_id").
		Order("MAX(created_at) DESC").
		Limit(ItemsPerPage).
		Pluck("item_id", &ids)
	return itemsInOrder(ids)
}

// itemsInOrder loads items by ID keeping the given order
func itemsInOrder(ids []string) []models.Item {
	if len(ids) == 0 {
		return nil
	}
	var items []models.Item
	database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id IN ?", ids).
		Find(&items)

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
	return ordered
}
