package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/permissions"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Team{},
		&models.NumberRange{},
		&models.AuditLog{},
	)
}

// SeedData persists the permission registry and the default system roles.
func SeedData(db *gorm.DB) error {
	if err := permissions.Sync(context.Background(), db); err != nil {
		return err
	}

	roles := []models.Role{
		{
			BaseModel:   models.BaseModel{ID: "admin"},
			Name:        "Administrator",
			Description: "Full system access",
			IsSystem:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "member"},
			Name:        "Member",
			Description: "View teams and number ranges",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	if err := grantRolePermissions(db, "admin", allPermissionIDs()); err != nil {
		return err
	}

	return grantRolePermissions(db, "member", []string{"team.view", "range.view"})
}

func allPermissionIDs() []string {
	defs := permissions.GetAll()
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	return ids
}

func grantRolePermissions(db *gorm.DB, roleID string, permissionIDs []string) error {
	var role models.Role
	if err := db.First(&role, "id = ?", roleID).Error; err != nil {
		return err
	}

	var perms []models.Permission
	if len(permissionIDs) > 0 {
		if err := db.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
			return err
		}
	}

	return db.Model(&role).Association("Permissions").Replace(perms)
}
