package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev fills the development database with realistic marketplace data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(40)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating items...")
	items, err := s.seedItems(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed items: %w", err)
	}

	logger.Log.Info("Creating comments...")
	comments, err := s.seedComments(users, items, 400)
	if err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating likes...")
	if err := s.seedLikes(users, items, comments); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Seed complete",
		zap.Int("users", len(users)),
		zap.Int("items", len(items)),
		zap.Int("comments", len(comments)),
	)
	return nil
}

// SeedTest creates the minimal fixture set integration tests expect
func (s *Seeder) SeedTest() error {
	users, err := s.seedUsers(4)
	if err != nil {
		return err
	}
	items, err := s.seedItems(users, 16)
	if err != nil {
		return err
	}
	_, err = s.seedComments(users, items, 20)
	return err
}

// Clean removes all seeded rows. Destructive, development only.
func (s *Seeder) Clean() error {
	tables := []interface{}{
		&models.Like{},
		&models.Comment{},
		&models.ItemImage{},
		&models.Item{},
		&models.EmailVerification{},
		&models.PasswordReset{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	// One fixed, verified account for manual login during development
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	users := make([]models.User, 0, count)
	demo := models.User{
		Email:         "demo@relist.dev",
		Username:      "demo",
		Nickname:      "demo",
		Address:       gofakeit.Street(),
		City:          gofakeit.City(),
		PasswordHash:  &hashStr,
		EmailVerified: true,
	}
	if err := s.db.Create(&demo).Error; err != nil {
		return nil, err
	}
	users = append(users, demo)

	for i := 1; i < count; i++ {
		username := strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", i)
		user := models.User{
			Email:         fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Username:      username,
			Nickname:      nicknameFor(username),
			Address:       gofakeit.Street(),
			City:          gofakeit.City(),
			PasswordHash:  &hashStr,
			EmailVerified: rand.Intn(10) > 1,
			AvatarURL:     placeholderImageURL(128, 128),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// placeholderImageURL returns a stable external placeholder so seeded
// records render images without touching the upload store.
func placeholderImageURL(width, height int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/%d/%d", gofakeit.LetterN(8), width, height)
}

// nicknameFor trims a username to the 15 character nickname limit and
// strips characters the nickname validator rejects
func nicknameFor(username string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, username)
	if len(cleaned) > 15 {
		cleaned = cleaned[:15]
	}
	if len(cleaned) < 2 {
		cleaned = "seller" + cleaned
	}
	return cleaned
}

func (s *Seeder) seedItems(users []models.User, count int) ([]models.Item, error) {
	conditions := models.Conditions()
	items := make([]models.Item, 0, count)

	for i := 0; i < count; i++ {
		seller := users[rand.Intn(len(users))]
		item := models.Item{
			SellerID:    seller.ID,
			Title:       gofakeit.ProductName(),
			Description: gofakeit.ProductDescription(),
			Price:       int64(gofakeit.Price(5, 50000)),
			Condition:   conditions[rand.Intn(len(conditions))],
			Location:    seller.City,
			Sold:        rand.Intn(5) == 0,
			CreatedAt:   gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
		}
		if err := s.db.Create(&item).Error; err != nil {
			return nil, err
		}

		for p := 0; p < rand.Intn(4); p++ {
			image := models.ItemImage{
				ItemID:   item.ID,
				URL:      placeholderImageURL(640, 480),
				Position: p,
			}
			if err := s.db.Create(&image).Error; err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Seeder) seedComments(users []models.User, items []models.Item, count int) ([]models.Comment, error) {
	comments := make([]models.Comment, 0, count)
	for i := 0; i < count; i++ {
		item := items[rand.Intn(len(items))]
		comment := models.Comment{
			ItemID:  item.ID,
			UserID:  users[rand.Intn(len(users))].ID,
			Content: gofakeit.Sentence(int(gofakeit.Number(4, 18))),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	// Keep the cached comment counts honest
	err := s.db.Exec(`
		UPDATE items SET comment_count = (
			SELECT COUNT(*) FROM comments
			WHERE comments.item_id = items.id AND comments.is_deleted = false
		)
	`).Error
	return comments, err
}

func (s *Seeder) seedLikes(users []models.User, items []models.Item, comments []models.Comment) error {
	for _, user := range users {
		for _, item := range items {
			if rand.Intn(6) != 0 {
				continue
			}
			like := models.Like{
				UserID:     user.ID,
				TargetType: models.LikeTargetItem,
				TargetID:   item.ID,
			}
			if err := s.db.Create(&like).Error; err != nil {
				return err
			}
		}
		for _, comment := range comments {
			if rand.Intn(20) != 0 {
				continue
			}
			like := models.Like{
				UserID:     user.ID,
				TargetType: models.LikeTargetComment,
				TargetID:   comment.ID,
			}
			if err := s.db.Create(&like).Error; err != nil {
				return err
			}
		}
	}

	if err := s.db.Exec(`
		UPDATE items SET like_count = (
			SELECT COUNT(*) FROM likes
			WHERE likes.target_type = 'item' AND likes.target_id = items.id
		)
	`).Error; err != nil {
		return err
	}
	return s.db.Exec(`
		UPDATE comments SET like_count = (
			SELECT COUNT(*) FROM likes
			WHERE likes.target_type = 'comment' AND likes.target_id = comments.id
		)
	`).Error
}
