package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/jmolenaar/rangedesk/internal/auth"
	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/permissions"
	"github.com/jmolenaar/rangedesk/pkg/crypto"
	"github.com/jmolenaar/rangedesk/pkg/errors"
	"github.com/jmolenaar/rangedesk/pkg/metrics"
	"github.com/jmolenaar/rangedesk/pkg/response"
)

// AuthHandler manages the login flow and the current-user endpoint.
type AuthHandler struct {
	db  *gorm.DB
	jwt *iauth.JWTService
}

func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		response.Error(c, errors.NewBadRequest("identifier is required"))
		return
	}

	var user models.User
	err := h.db.WithContext(requestContext(c)).
		Where("username = ? OR email = ?", req.Identifier, req.Identifier).
		First(&user).Error
	if err != nil || !user.IsActive || !crypto.VerifyPassword(user.Password, req.Password) {
		// Normalise auth errors to 401
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	now := time.Now()
	h.db.Model(&user).Update("last_login_at", &now)

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	checker, _ := permissions.NewChecker(h.db)
	perms, _ := checker.GetUserPermissions(requestContext(c), user.ID)

	payload := gin.H{
		"tokens": tokenResponse{AccessToken: token},
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"email":     user.Email,
			"is_root":   user.IsRoot,
			"is_active": user.IsActive,
		},
		"permissions": perms,
	}

	response.Success(c, http.StatusOK, payload)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).
		Preload("Teams").
		First(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	checker, _ := permissions.NewChecker(h.db)
	perms, _ := checker.GetUserPermissions(requestContext(c), user.ID)

	response.Success(c, http.StatusOK, gin.H{
		"user":        user,
		"permissions": perms,
	})
}
