package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/jmolenaar/rangedesk/internal/auth"
	"github.com/jmolenaar/rangedesk/internal/handlers"
	"github.com/jmolenaar/rangedesk/internal/middleware"
	"github.com/jmolenaar/rangedesk/internal/permissions"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(db, jwt)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}
	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	// Users
	userHandler := handlers.NewUserHandler(db)
	users := api.Group("/users")
	{
		users.GET("", middleware.RequirePermission(checker, "user.view"), userHandler.List)
		users.GET("/:id", middleware.RequirePermission(checker, "user.view"), userHandler.Get)
		users.POST("", middleware.RequirePermission(checker, "user.create"), userHandler.Create)
	}

	// Teams
	teamHandler, err := handlers.NewTeamHandler(db)
	if err != nil {
		return nil, err
	}
	teams := api.Group("/teams")
	{
		teams.GET("", middleware.RequirePermission(checker, "team.view"), teamHandler.List)
		teams.GET("/:id", middleware.RequirePermission(checker, "team.view"), teamHandler.Get)
		teams.GET("/:id/descendants", middleware.RequirePermission(checker, "team.view"), teamHandler.Descendants)
		teams.GET("/:id/ancestors", middleware.RequirePermission(checker, "team.view"), teamHandler.Ancestors)
		teams.POST("", middleware.RequirePermission(checker, "team.manage"), teamHandler.Create)
		teams.PATCH("/:id", middleware.RequirePermission(checker, "team.manage"), teamHandler.Update)
		teams.PUT("/:id/parent", middleware.RequirePermission(checker, "team.manage"), teamHandler.Move)
		teams.DELETE("/:id", middleware.RequirePermission(checker, "team.manage"), teamHandler.Delete)
		teams.GET("/:id/members", middleware.RequirePermission(checker, "team.view"), teamHandler.ListMembers)
		teams.POST("/:id/members", middleware.RequirePermission(checker, "team.manage"), teamHandler.AddMember)
		teams.DELETE("/:id/members/:userId", middleware.RequirePermission(checker, "team.manage"), teamHandler.RemoveMember)
	}

	// Number ranges
	rangeHandler, err := handlers.NewNumberRangeHandler(db)
	if err != nil {
		return nil, err
	}
	api.GET("/teams/:id/ranges", middleware.RequirePermission(checker, "range.view"), rangeHandler.ListByTeam)
	rangesGroup := api.Group("/ranges")
	{
		rangesGroup.GET("/:id", middleware.RequirePermission(checker, "range.view"), rangeHandler.Get)
		rangesGroup.POST("", middleware.RequirePermission(checker, "range.create"), rangeHandler.Create)
		rangesGroup.POST("/validate", middleware.RequirePermission(checker, "range.view"), rangeHandler.Validate)
		rangesGroup.PATCH("/:id", middleware.RequirePermission(checker, "range.edit"), rangeHandler.Update)
		rangesGroup.DELETE("/:id", middleware.RequirePermission(checker, "range.delete"), rangeHandler.Delete)
	}

	// Audit
	auditHandler, err := handlers.NewAuditHandler(db)
	if err != nil {
		return nil, err
	}
	api.GET("/audit", middleware.RequirePermission(checker, "audit.view"), auditHandler.List)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
