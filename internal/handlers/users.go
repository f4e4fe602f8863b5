package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/pkg/crypto"
	"github.com/jmolenaar/rangedesk/pkg/errors"
	"github.com/jmolenaar/rangedesk/pkg/response"
)

// UserHandler exposes user administration endpoints.
type UserHandler struct {
	db *gorm.DB
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   string `json:"role_id" validate:"omitempty,max=64"`
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var users []models.User
	if err := h.db.WithContext(requestContext(c)).
		Preload("Roles").
		Order("username ASC").
		Find(&users).Error; err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	var user models.User
	err := h.db.WithContext(requestContext(c)).
		Preload("Roles").
		Preload("Teams").
		First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	hashed, err := crypto.HashPassword(body.Password)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	user := models.User{
		Username: strings.TrimSpace(body.Username),
		Email:    strings.ToLower(strings.TrimSpace(body.Email)),
		Password: hashed,
		IsActive: true,
	}

	err = h.db.WithContext(requestContext(c)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if body.RoleID != "" {
			var role models.Role
			if err := tx.First(&role, "id = ?", body.RoleID).Error; err != nil {
				return err
			}
			return tx.Model(&user).Association("Roles").Append(&role)
		}
		return nil
	})
	if err != nil {
		response.Error(c, errors.NewConflict("user already exists or role not found"))
		return
	}
	response.Success(c, http.StatusCreated, user)
}
