package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/http/middleware"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
	"github.com/dmitrijs2005/hiinen/internal/server/services"
)

// Accounts is the account API the auth and user handlers need.
// *services.UserService implements it.
type Accounts interface {
	SignUp(ctx context.Context, in services.SignUpInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *auth.Session, error)
	Logout(ctx context.Context, user *models.User, token string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	OAuthURL(provider models.IdentityProvider) (string, error)
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.User, error)
	ChangePassword(ctx context.Context, user *models.User, current, next string) error
	RequestAvatarUpload(ctx context.Context, userID, contentType string) (*services.AvatarUpload, error)
}

type AuthHandler struct {
	accounts Accounts
	logger   logging.Logger
}

func NewAuthHandler(accounts Accounts, logger logging.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger.With("module", "auth_handler")}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	UserType string `json:"userType"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.accounts.SignUp(c.Request.Context(), services.SignUpInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.UserType),
	})
	if err != nil {
		respondError(c, h.logger, err, messages{internal: "Server error during registration"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully! Please check your email to verify your account.",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err, messages{internal: "Server error during login"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         user,
		"token":        session.AccessToken,
		"refreshToken": session.RefreshToken,
		"expiresAt":    session.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	if err := h.accounts.Logout(c.Request.Context(), user, middleware.BearerToken(c)); err != nil {
		respondError(c, h.logger, err, messages{unauthorized: "Invalid token", internal: "Server error during logout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err, messages{unauthorized: "Invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        session.AccessToken,
		"refreshToken": session.RefreshToken,
		"expiresAt":    session.ExpiresAt,
	})
}

func (h *AuthHandler) Google(c *gin.Context) {
	url, err := h.accounts.OAuthURL(models.ProviderGoogle)
	if err != nil {
		respondError(c, h.logger, err, messages{
			notSupported: "OAuth is not available",
			internal:     "Server error during Google authentication",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": url})
}
