package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&User{},
		&Role{},
		&Permission{},
		&Team{},
		&NumberRange{},
		&AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestBaseModelGeneratesUUID(t *testing.T) {
	db := openModelTestDB(t)

	team := Team{Name: "Division", Type: TeamTypeDivision}
	require.NoError(t, db.Create(&team).Error)
	require.NotEmpty(t, team.ID)
}

func TestTeamLevelDerivedFromParent(t *testing.T) {
	db := openModelTestDB(t)

	root := Team{Name: "Division", Type: TeamTypeDivision}
	require.NoError(t, db.Create(&root).Error)
	require.Equal(t, 0, root.Level)
	require.True(t, root.IsRoot())

	child := Team{Name: "Dept A", Type: TeamTypeDepartment, ParentID: &root.ID}
	require.NoError(t, db.Create(&child).Error)
	require.Equal(t, 1, child.Level)

	grandchild := Team{Name: "Unit A1", Type: TeamTypeUnit, ParentID: &child.ID}
	require.NoError(t, db.Create(&grandchild).Error)
	require.Equal(t, 2, grandchild.Level)
}

func TestTeamLevelRecomputedOnReparent(t *testing.T) {
	db := openModelTestDB(t)

	root := Team{Name: "Division"}
	require.NoError(t, db.Create(&root).Error)

	child := Team{Name: "Dept A", ParentID: &root.ID}
	require.NoError(t, db.Create(&child).Error)

	moved := Team{Name: "Dept B", ParentID: &root.ID}
	require.NoError(t, db.Create(&moved).Error)
	require.Equal(t, 1, moved.Level)

	moved.ParentID = &child.ID
	require.NoError(t, db.Save(&moved).Error)
	require.Equal(t, 2, moved.Level)

	moved.ParentID = nil
	require.NoError(t, db.Save(&moved).Error)
	require.Equal(t, 0, moved.Level)
}

func TestTeamSaveRejectsMissingParent(t *testing.T) {
	db := openModelTestDB(t)

	missing := "9f8f6f6e-0000-4000-8000-000000000000"
	orphan := Team{Name: "Orphan", ParentID: &missing}
	require.Error(t, db.Create(&orphan).Error)
}

func TestNumberRangeBelongsToTeam(t *testing.T) {
	db := openModelTestDB(t)

	team := Team{Name: "Division"}
	require.NoError(t, db.Create(&team).Error)

	nr := NumberRange{TeamID: team.ID, StartNumber: 1, EndNumber: 5000}
	require.NoError(t, db.Create(&nr).Error)

	var loaded NumberRange
	require.NoError(t, db.Preload("Team").First(&loaded, "id = ?", nr.ID).Error)
	require.Equal(t, team.ID, loaded.Team.ID)
	require.EqualValues(t, 1, loaded.StartNumber)
	require.EqualValues(t, 5000, loaded.EndNumber)
}
