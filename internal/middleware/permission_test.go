package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jmolenaar/rangedesk/internal/database/testutil"
	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/permissions"
)

func TestRequirePermissionWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// No userID in the context: the middleware must reject before ever
	// touching the checker.
	r := gin.New()
	r.GET("/secure", RequirePermission(&permissions.Checker{}, "range.view"), func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermissionDeniedAndAllowed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	rootUser := &models.User{Username: "root", Email: "root@example.com", Password: "x", IsRoot: true, IsActive: true}
	require.NoError(t, db.Create(rootUser).Error)
	plainUser := &models.User{Username: "plain", Email: "plain@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(plainUser).Error)

	newRouter := func(userID string) *gin.Engine {
		r := gin.New()
		r.GET("/secure",
			func(c *gin.Context) { c.Set(CtxUserIDKey, userID) },
			RequirePermission(checker, "range.view"),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)
		return r
	}

	w := httptest.NewRecorder()
	newRouter(plainUser.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	newRouter(rootUser.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
