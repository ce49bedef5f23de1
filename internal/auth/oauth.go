package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/models"
	"gorm.io/gorm"
)

// GoogleUserInfo represents the Google OpenID userinfo response
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// HandleGoogleCallback exchanges the authorization code and signs the user in,
// creating or linking the account as needed.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if s.googleConfig == nil {
		return nil, errors.New("google login is not configured")
	}

	info, err := s.getGoogleUserInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}

	return s.findOrCreateGoogleUser(info)
}

// findOrCreateGoogleUser implements email-based account unification:
// an existing account with the same email gets the Google ID linked,
// otherwise a fresh account is created. New accounts start with an empty
// profile so the profile gate routes them to setup on first page load.
func (s *Service) findOrCreateGoogleUser(info *GoogleUserInfo) (*AuthResponse, error) {
	var user models.User
	err := database.DB.Where("google_id = ?", info.Sub).First(&user).Error
	if err == nil {
		return s.generateAuthResponse(&user)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Link to an existing account with the same email
	existing, err := s.FindUserByEmail(info.Email)
	if err == nil {
		existing.GoogleID = &info.Sub
		if existing.AvatarURL == "" && info.Picture != "" {
			existing.AvatarURL = info.Picture
		}
		if !existing.EmailVerified && info.EmailVerified {
			existing.EmailVerified = true
		}
		if err := database.DB.Save(existing).Error; err != nil {
			return nil, fmt.Errorf("failed to link Google account: %w", err)
		}
		return s.generateAuthResponse(existing)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	username, err := s.ensureUniqueUsername(usernameFromName(info.Name))
	if err != nil {
		return nil, err
	}

	user = models.User{
		ID:            uuid.New().String(),
		Email:         info.Email,
		Username:      username,
		GoogleID:      &info.Sub,
		AvatarURL:     info.Picture,
		EmailVerified: info.EmailVerified,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.generateAuthResponse(&user)
}

// getGoogleUserInfo exchanges the code and fetches the userinfo document
func (s *Service) getGoogleUserInfo(ctx context.Context, code string) (*GoogleUserInfo, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := s.googleConfig.Client(ctx, token)
	resp, err := client.Get("https://openidconnect.googleapis.com/v1/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	if info.Email == "" {
		return nil, errors.New("google account has no email")
	}

	return &info, nil
}

// usernameFromName derives a username candidate from the OAuth display name
func usernameFromName(name string) string {
	username := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	username = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, username)
	if len(username) < 3 {
		username = "user"
	}
	if len(username) > 24 {
		username = username[:24]
	}
	return username
}

// ensureUniqueUsername appends a short suffix until the username is free
func (s *Service) ensureUniqueUsername(base string) (string, error) {
	username := base
	for attempt := 0; attempt < 10; attempt++ {
		var existing models.User
		err := database.DB.Where("LOWER(username) = LOWER(?)", username).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return username, nil
		} else if err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}
		username = fmt.Sprintf("%s%s", base, uuid.New().String()[:6])
	}
	return "", errors.New("could not generate unique username")
}
