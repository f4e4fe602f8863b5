package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/jmolenaar/rangedesk/pkg/errors"
)

func recordedContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, recorder
}

func TestSuccessEnvelope(t *testing.T) {
	c, recorder := recordedContext(t)

	Success(c, http.StatusOK, gin.H{"id": "abc"})

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.Nil(t, payload.Error)
}

func TestErrorRendersAppError(t *testing.T) {
	c, recorder := recordedContext(t)

	Error(c, appErrors.NewConflict("cannot delete a range that has sub-ranges"))

	require.Equal(t, http.StatusConflict, recorder.Code)

	var payload Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, "CONFLICT", payload.Error.Code)
}

func TestValidationFailedCarriesField(t *testing.T) {
	c, recorder := recordedContext(t)

	ValidationFailed(c, "range_end", "end range (2) must be greater than start range (5)")

	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var payload Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Equal(t, "range_end", payload.Error.Field)
	require.Equal(t, "VALIDATION_FAILED", payload.Error.Code)
}
