package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a marketplace account with unified auth
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	// Native auth fields
	PasswordHash     *string `gorm:"type:text" json:"-"`
	EmailVerified    bool    `gorm:"default:false" json:"email_verified"`
	EmailVerifyToken *string `gorm:"type:text" json:"-"`

	// OAuth provider ID (nullable - users can have native accounts)
	GoogleID *string `gorm:"uniqueIndex" json:"-"`

	// Profile data. Nickname, address and city must all be present before
	// the profile counts as complete; the profile gate middleware redirects
	// page requests until they are. Nickname uniqueness is enforced in the
	// profile handler because every account starts with an empty one.
	Nickname  string `gorm:"index" json:"nickname"`
	Address   string `json:"address"`
	City      string `json:"city"`
	AvatarURL string `json:"avatar_url"`

	IsAdmin bool `gorm:"default:false" json:"is_admin"`

	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProfileComplete reports whether the user has filled in the fields the
// marketplace requires before participating.
func (u *User) ProfileComplete() bool {
	return u.Nickname != "" && u.Address != "" && u.City != ""
}

// ItemCondition is the enumerated physical condition of a listed item.
// It backs the radio group the condition dropdown presents.
type ItemCondition string

const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like_new"
	ConditionGood    ItemCondition = "good"
	ConditionWorn    ItemCondition = "worn"
)

// Valid reports whether the condition is one of the known values
func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionWorn:
		return true
	}
	return false
}

// Label returns the display text shown for this condition
func (c ItemCondition) Label() string {
	switch c {
	case ConditionNew:
		return "New"
	case ConditionLikeNew:
		return "Like new"
	case ConditionGood:
		return "Good"
	case ConditionWorn:
		return "Worn"
	}
	return string(c)
}

// Conditions lists every condition in display order
func Conditions() []ItemCondition {
	return []ItemCondition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionWorn}
}

// Item represents a second-hand listing
type Item struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	SellerID string `gorm:"not null;index" json:"seller_id"`
	Seller   User   `gorm:"foreignKey:SellerID" json:"seller,omitempty"`

	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Price       int64         `gorm:"not null" json:"price"` // whole currency units
	Condition   ItemCondition `gorm:"not null" json:"condition"`
	Location    string        `json:"location"`

	// Sold toggle state; mirrored by two synced controls client-side
	Sold bool `gorm:"default:false" json:"sold"`

	Images []ItemImage `gorm:"foreignKey:ItemID" json:"images,omitempty"`

	// Cached engagement counts, maintained alongside like/comment writes
	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ItemImage is one uploaded photo of an item, ordered by Position
type ItemImage struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	ItemID string `gorm:"not null;index" json:"item_id"`

	URL              string `gorm:"not null" json:"url"`
	OriginalFilename string `json:"original_filename"`
	Position         int    `gorm:"default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a comment on an Item
type Comment struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	ItemID string `gorm:"not null;index" json:"item_id"`
	Item   Item   `gorm:"foreignKey:ItemID" json:"-"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	// Cached like count for the generic like system
	LikeCount int `gorm:"default:0" json:"like_count"`

	// Edit tracking
	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	// Soft delete for "comment removed"
	IsDeleted bool `gorm:"default:false" json:"is_deleted"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LikeTargetType names what kind of row a like points at
type LikeTargetType string

const (
	LikeTargetItem    LikeTargetType = "item"
	LikeTargetComment LikeTargetType = "comment"
)

// Valid reports whether the target type is known
func (t LikeTargetType) Valid() bool {
	return t == LikeTargetItem || t == LikeTargetComment
}

// Like is the generic like relation: one row per (user, target type, target).
// A unique index enforces at most one like per user per target; toggling
// deletes or creates the row.
type Like struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string         `gorm:"not null;uniqueIndex:idx_likes_user_target" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID" json:"-"`
	TargetType LikeTargetType `gorm:"not null;uniqueIndex:idx_likes_user_target" json:"target_type"`
	TargetID   string         `gorm:"not null;uniqueIndex:idx_likes_user_target;index" json:"target_id"`

	CreatedAt time.Time `json:"created_at"`
}

// EmailVerification represents email confirmation tokens sent at signup
type EmailVerification struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordReset represents password reset tokens
type PasswordReset struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hooks for GORM

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = generateUUID()
	}
	return nil
}

func (img *ItemImage) BeforeCreate(tx *gorm.DB) error {
	if img.ID == "" {
		img.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (v *EmailVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}

func (r *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
