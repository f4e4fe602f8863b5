package models

import (
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TeamType classifies a node in the organisational hierarchy.
type TeamType string

// Team types supported by the back office.
const (
	TeamTypeDepartment TeamType = "department"
	TeamTypeDivision   TeamType = "division"
	TeamTypeTeam       TeamType = "team"
	TeamTypeUnit       TeamType = "unit"
)

// Valid reports whether t is one of the known team types.
func (t TeamType) Valid() bool {
	switch t {
	case TeamTypeDepartment, TeamTypeDivision, TeamTypeTeam, TeamTypeUnit:
		return true
	}
	return false
}

// Team is a tenant node in the organisational hierarchy. Teams form an
// adjacency-list tree via ParentID; Level is derived from the parent on save.
type Team struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"index" json:"slug"`
	Description string `json:"description"`
	Type        TeamType `gorm:"type:varchar(32);not null;default:team" json:"type"`

	ParentID *string `gorm:"type:uuid;index" json:"parent_id"`
	Parent   *Team   `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"parent,omitempty"`
	Children []Team  `gorm:"foreignKey:ParentID" json:"children,omitempty"`

	Level    int  `gorm:"not null;default:0" json:"level"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedBy *string `gorm:"type:uuid" json:"created_by"`
	Creator   *User   `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	Settings datatypes.JSON `json:"settings"`

	Users        []User        `gorm:"many2many:team_user;" json:"users,omitempty"`
	NumberRanges []NumberRange `gorm:"foreignKey:TeamID" json:"number_ranges,omitempty"`
}

// BeforeSave keeps Level consistent with the parent: parent's level + 1, or 0
// for root teams. Runs on create and on every save, so reparenting a team
// recomputes its level automatically.
func (t *Team) BeforeSave(tx *gorm.DB) error {
	if t.ParentID == nil || *t.ParentID == "" {
		t.Level = 0
		return nil
	}

	var parent Team
	err := tx.Session(&gorm.Session{NewDB: true}).
		Select("level").
		First(&parent, "id = ?", *t.ParentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New("team: parent team does not exist")
	}
	if err != nil {
		return err
	}

	t.Level = parent.Level + 1
	return nil
}

// IsRoot reports whether the team sits at the top of the hierarchy.
func (t *Team) IsRoot() bool {
	return t.ParentID == nil || *t.ParentID == ""
}
