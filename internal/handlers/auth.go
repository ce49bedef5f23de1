package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/relist-market/backend/internal/auth"
	"github.com/relist-market/backend/internal/logger"
	"github.com/relist-market/backend/internal/middleware"
	"github.com/relist-market/backend/internal/models"
	"github.com/relist-market/backend/internal/util"
	"go.uber.org/zap"
)

const oauthStateCookie = "oauth_state"

// Register creates an account with email and password
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, verification, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			util.RespondConflict(c, "email")
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondConflict(c, "username")
		case errors.Is(err, auth.ErrNicknameExists):
			util.RespondConflict(c, "nickname")
		case errors.Is(err, auth.ErrWeakPassword):
			util.RespondValidationError(c, "password", err.Error())
		default:
			if strings.Contains(err.Error(), "nickname") {
				util.RespondValidationError(c, "nickname", err.Error())
				return
			}
			logger.ErrorWithFields("Registration failed", err)
			util.RespondInternalError(c, "Failed to create account")
		}
		return
	}

	if err := h.mailer.SendVerificationEmail(c.Request.Context(), resp.User.Email, verification.Token); err != nil {
		// Account exists; the user can request another mail
		logger.ErrorWithFields("Failed to send verification email", err)
	}

	h.setSessionCookie(c, resp.Token, resp.ExpiresAt)

	c.JSON(http.StatusCreated, gin.H{
		"user":       resp.User,
		"expires_at": resp.ExpiresAt,
		"redirect":   postLoginRedirect(&resp.User, ""),
	})
}

// Login authenticates with email and password
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			util.RespondUnauthorized(c, "invalid email or password")
			return
		}
		logger.ErrorWithFields("Login failed", err)
		util.RespondInternalError(c, "Failed to log in")
		return
	}

	h.setSessionCookie(c, resp.Token, resp.ExpiresAt)

	c.JSON(http.StatusOK, gin.H{
		"user":       resp.User,
		"expires_at": resp.ExpiresAt,
		"redirect":   postLoginRedirect(&resp.User, c.Query("next")),
	})
}

// Logout clears the session cookie
// POST /api/v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Me returns the authenticated user
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// VerifyEmail consumes a verification token from the signup mail
// POST /api/v1/auth/verify-email
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.auth.VerifyEmail(req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			util.RespondBadRequest(c, "invalid or expired verification token")
			return
		}
		logger.ErrorWithFields("Email verification failed", err)
		util.RespondInternalError(c, "Failed to verify email")
		return
	}

	logger.InfoWithFields("Email verified", logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"status": "verified", "user": user})
}

// ResendVerification issues a fresh verification token
// POST /api/v1/auth/resend-verification
func (h *Handlers) ResendVerification(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if user.EmailVerified {
		util.RespondBadRequest(c, "email is already verified")
		return
	}

	verification, err := h.auth.CreateEmailVerification(user)
	if err != nil {
		logger.ErrorWithFields("Failed to create verification token", err)
		util.RespondInternalError(c, "Failed to resend verification email")
		return
	}

	if err := h.mailer.SendVerificationEmail(c.Request.Context(), user.Email, verification.Token); err != nil {
		logger.ErrorWithFields("Failed to send verification email", err)
		util.RespondInternalError(c, "Failed to resend verification email")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// ForgotPassword starts the password reset flow. The response is the
// same whether or not the address has an account, so the endpoint
// cannot be used to probe for registered emails.
// POST /api/v1/auth/forgot-password
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	reset, err := h.auth.RequestPasswordReset(req.Email)
	if err != nil {
		logger.ErrorWithFields("Password reset request failed", err)
		util.RespondInternalError(c, "Failed to process request")
		return
	}

	if reset != nil {
		if err := h.mailer.SendPasswordResetEmail(c.Request.Context(), req.Email, reset.Token); err != nil {
			logger.ErrorWithFields("Failed to send password reset email", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "if the address has an account, a reset email was sent"})
}

// ResetPassword consumes a reset token and sets a new password
// POST /api/v1/auth/reset-password
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.ResetPassword(req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			util.RespondBadRequest(c, "invalid or expired reset token")
		case errors.Is(err, auth.ErrWeakPassword):
			util.RespondValidationError(c, "password", err.Error())
		default:
			logger.ErrorWithFields("Password reset failed", err)
			util.RespondInternalError(c, "Failed to reset password")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

// GoogleLogin redirects the browser to Google's consent screen
// GET /auth/google
func (h *Handlers) GoogleLogin(c *gin.Context) {
	if !h.auth.GoogleEnabled() {
		util.RespondNotFound(c, "social login")
		return
	}

	state, err := middleware.NewCSRFToken()
	if err != nil {
		util.RespondInternalError(c, "Failed to start login")
		return
	}

	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.secureCookies, true)
	c.Redirect(http.StatusFound, h.auth.GetGoogleOAuthURL(state))
}

// GoogleCallback completes the OAuth flow and signs the user in
// GET /auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	if !h.auth.GoogleEnabled() {
		util.RespondNotFound(c, "social login")
		return
	}

	stateCookie, err := c.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(stateCookie), []byte(c.Query("state"))) != 1 {
		util.RespondBadRequest(c, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookies, true)

	code := c.Query("code")
	if code == "" {
		util.RespondBadRequest(c, "missing authorization code")
		return
	}

	resp, err := h.auth.HandleGoogleCallback(c.Request.Context(), code)
	if err != nil {
		logger.ErrorWithFields("Google OAuth callback failed", err)
		c.Redirect(http.StatusFound, "/login?error=oauth")
		return
	}

	h.setSessionCookie(c, resp.Token, resp.ExpiresAt)

	logger.Log.Info("OAuth login",
		logger.WithUserID(resp.User.ID),
		zap.String("provider", "google"),
	)
	c.Redirect(http.StatusFound, postLoginRedirect(&resp.User, ""))
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(middleware.SessionCookieName, token, maxAge, "/", "", h.secureCookies, true)
}

// postLoginRedirect sends users with incomplete profiles to setup,
// otherwise to the requested page or home
func postLoginRedirect(user *models.User, next string) string {
	if !user.ProfileComplete() {
		return "/profile/setup"
	}
	if next != "" && safeRedirect(next) {
		return next
	}
	return "/"
}

// safeRedirect rejects absolute and protocol-relative URLs so ?next=
// cannot bounce users to another site
func safeRedirect(next string) bool {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return false
	}
	u, err := url.Parse(next)
	if err != nil {
		return false
	}
	return u.Host == "" && u.Scheme == ""
}
