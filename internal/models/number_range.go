package models

// NumberRange reserves a closed interval of sequential numbers for a team.
// Ranges may nest: a child range (ParentID) subdivides another reserved block.
// StartNumber and EndNumber are raw numbers; callers present them in block
// units of 1000 (see the ranges package).
type NumberRange struct {
	BaseModel

	TeamID string `gorm:"type:uuid;not null;index" json:"team_id"`
	Team   *Team  `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"team,omitempty"`

	ParentID *string       `gorm:"type:uuid;index" json:"parent_id"`
	Parent   *NumberRange  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"parent,omitempty"`
	Children []NumberRange `gorm:"foreignKey:ParentID" json:"children,omitempty"`

	StartNumber int64 `gorm:"not null;index:idx_number_ranges_interval" json:"start_number"`
	EndNumber   int64 `gorm:"not null;index:idx_number_ranges_interval" json:"end_number"`

	Description string `json:"description"`

	CreatedBy *string `gorm:"type:uuid" json:"created_by"`
	Creator   *User   `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}
