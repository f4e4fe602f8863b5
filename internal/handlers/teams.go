package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/services"
	"github.com/jmolenaar/rangedesk/pkg/errors"
	"github.com/jmolenaar/rangedesk/pkg/response"
)

// TeamHandler exposes the team hierarchy over HTTP.
type TeamHandler struct {
	db  *gorm.DB
	svc *services.TeamService
}

type createTeamRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=128"`
	Description string  `json:"description" validate:"omitempty,max=512"`
	Type        string  `json:"type" validate:"omitempty,oneof=department division team unit"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid4"`
}

type updateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=128"`
	Description *string `json:"description" validate:"omitempty,max=512"`
	Type        *string `json:"type" validate:"omitempty,oneof=department division team unit"`
	IsActive    *bool   `json:"is_active"`
}

type moveTeamRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid4"`
}

type teamMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func NewTeamHandler(db *gorm.DB) (*TeamHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewTeamService(db, audit)
	if err != nil {
		return nil, err
	}
	return &TeamHandler{db: db, svc: svc}, nil
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	requester, err := h.loadRequester(c)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	teams, err := h.svc.List(requestContext(c), requester, false)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// GET /api/teams/:id/descendants
func (h *TeamHandler) Descendants(c *gin.Context) {
	ids, err := h.svc.DescendantTeamIDs(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"team_ids": ids})
}

// GET /api/teams/:id/ancestors
func (h *TeamHandler) Ancestors(c *gin.Context) {
	ancestors, err := h.svc.Ancestors(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ancestors)
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.CreateTeamInput{
		Name:        strings.TrimSpace(body.Name),
		Description: strings.TrimSpace(body.Description),
		Type:        models.TeamType(body.Type),
		ParentID:    body.ParentID,
		CreatedBy:   currentUserID(c),
	}

	team, err := h.svc.Create(requestContext(c), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// PATCH /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	var body updateTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if body.Name == nil && body.Description == nil && body.Type == nil && body.IsActive == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	input := services.UpdateTeamInput{
		Name:        body.Name,
		Description: body.Description,
		IsActive:    body.IsActive,
	}
	if body.Type != nil {
		teamType := models.TeamType(*body.Type)
		input.Type = &teamType
	}

	team, err := h.svc.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// PUT /api/teams/:id/parent
func (h *TeamHandler) Move(c *gin.Context) {
	var body moveTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.Move(requestContext(c), c.Param("id"), body.ParentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	var body teamMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.AddMember(requestContext(c), c.Param("id"), body.UserID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"added": true})
}

// DELETE /api/teams/:id/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	if err := h.svc.RemoveMember(requestContext(c), c.Param("id"), c.Param("userId")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

func (h *TeamHandler) loadRequester(c *gin.Context) (*models.User, error) {
	userID := currentUserID(c)
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	var user models.User
	if err := h.db.WithContext(requestContext(c)).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
