package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jmolenaar/rangedesk/internal/services"
	appErrors "github.com/jmolenaar/rangedesk/pkg/errors"
	"github.com/jmolenaar/rangedesk/pkg/response"
)

// writeServiceError translates service layer errors into the wire format.
// Rule violations become 422 payloads naming the offending field; sentinel
// errors already carry their status code.
func writeServiceError(c *gin.Context, err error) {
	if verr, ok := services.AsValidationError(err); ok {
		response.ValidationFailed(c, verr.Field, verr.Message)
		return
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		response.Error(c, appErr)
		return
	}

	response.Error(c, appErrors.ErrInternalServer)
}
