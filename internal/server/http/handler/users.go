package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/http/middleware"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

type UserHandler struct {
	accounts Accounts
	logger   logging.Logger
}

func NewUserHandler(accounts Accounts, logger logging.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger.With("module", "user_handler")}
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	updated, err := h.accounts.UpdateProfile(c.Request.Context(), user.ID, patch)
	if err != nil {
		respondError(c, h.logger, err, messages{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	if err := h.accounts.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err, messages{
			unauthorized: "Current password is incorrect",
			notSupported: "Password changes are handled by the identity provider",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

type avatarRequest struct {
	ContentType string `json:"contentType"`
}

func (h *UserHandler) Avatar(c *gin.Context) {
	var req avatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	upload, err := h.accounts.RequestAvatarUpload(c.Request.Context(), user.ID, req.ContentType)
	if err != nil {
		respondError(c, h.logger, err, messages{})
		return
	}
	c.JSON(http.StatusOK, upload)
}
