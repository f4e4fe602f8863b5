package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/permissions"
	"github.com/jmolenaar/rangedesk/internal/services"
	"github.com/jmolenaar/rangedesk/pkg/errors"
	"github.com/jmolenaar/rangedesk/pkg/response"
)

// NumberRangeHandler exposes number range allocation over HTTP. Bounds travel
// in block units on the wire; the service converts at the boundary. The flat
// permission is checked by middleware; team scoping happens here.
type NumberRangeHandler struct {
	svc  *services.NumberRangeService
	caps *permissions.Capabilities
}

type createNumberRangeRequest struct {
	TeamID      string  `json:"team_id" validate:"required,uuid4"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid4"`
	RangeStart  int64   `json:"range_start" validate:"min=0"`
	RangeEnd    int64   `json:"range_end" validate:"min=0"`
	Description string  `json:"description" validate:"omitempty,max=512"`
}

type updateNumberRangeRequest struct {
	RangeStart  *int64  `json:"range_start" validate:"omitempty,min=0"`
	RangeEnd    *int64  `json:"range_end" validate:"omitempty,min=0"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid4"`
	Description *string `json:"description" validate:"omitempty,max=512"`
}

type validateNumberRangeRequest struct {
	TeamID     string `json:"team_id" validate:"required,uuid4"`
	RangeStart int64  `json:"range_start" validate:"min=0"`
	RangeEnd   int64  `json:"range_end" validate:"min=0"`
	ExcludeID  string `json:"exclude_id" validate:"omitempty,uuid4"`
}

func NewNumberRangeHandler(db *gorm.DB) (*NumberRangeHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewNumberRangeService(db, audit)
	if err != nil {
		return nil, err
	}
	caps, err := permissions.NewCapabilities(db)
	if err != nil {
		return nil, err
	}
	return &NumberRangeHandler{svc: svc, caps: caps}, nil
}

// GET /api/teams/:id/ranges
func (h *NumberRangeHandler) ListByTeam(c *gin.Context) {
	rows, err := h.svc.ListByTeam(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// GET /api/ranges/:id
func (h *NumberRangeHandler) Get(c *gin.Context) {
	rng, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rng)
}

// POST /api/ranges
func (h *NumberRangeHandler) Create(c *gin.Context) {
	var body createNumberRangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	allowed, err := h.caps.CanCreateRange(requestContext(c), currentUserID(c), body.TeamID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !allowed {
		response.Error(c, errors.ErrForbidden)
		return
	}

	rng, err := h.svc.Create(requestContext(c), services.CreateNumberRangeInput{
		TeamID:      body.TeamID,
		ParentID:    body.ParentID,
		RangeStart:  body.RangeStart,
		RangeEnd:    body.RangeEnd,
		Description: body.Description,
		CreatedBy:   currentUserID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rng)
}

// PATCH /api/ranges/:id
func (h *NumberRangeHandler) Update(c *gin.Context) {
	var body updateNumberRangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	existing, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	allowed, err := h.caps.CanEditRange(requestContext(c), currentUserID(c), existing)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !allowed {
		response.Error(c, errors.ErrForbidden)
		return
	}

	rng, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateNumberRangeInput{
		RangeStart:  body.RangeStart,
		RangeEnd:    body.RangeEnd,
		ParentID:    body.ParentID,
		Description: body.Description,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rng)
}

// DELETE /api/ranges/:id
func (h *NumberRangeHandler) Delete(c *gin.Context) {
	existing, err := h.svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	allowed, err := h.caps.CanDeleteRange(requestContext(c), currentUserID(c), existing)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !allowed {
		response.Error(c, errors.ErrForbidden)
		return
	}

	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/ranges/validate
// Dry run: reports the first violated rule without persisting anything.
func (h *NumberRangeHandler) Validate(c *gin.Context) {
	var body validateNumberRangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	err := h.svc.ValidateRange(requestContext(c), services.RangeCandidate{
		TeamID:     body.TeamID,
		BlockStart: body.RangeStart,
		BlockEnd:   body.RangeEnd,
		ExcludeID:  body.ExcludeID,
	})
	if err != nil {
		if verr, ok := services.AsValidationError(err); ok {
			response.Success(c, http.StatusOK, gin.H{
				"valid": false,
				"error": verr,
			})
			return
		}
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": true})
}
