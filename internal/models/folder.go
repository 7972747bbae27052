package models

// Folder is a node in the workflow folder forest. ParentID is nil for roots;
// sibling names are unique (enforced in the service layer so the error can
// surface as a conflict rather than a driver-specific constraint failure).
type Folder struct {
	BaseModel

	Name        string  `gorm:"not null;index" json:"name"`
	Description string  `json:"description"`
	ParentID    *string `gorm:"type:uuid;index" json:"parent_id"`
	CreatedBy   string  `gorm:"type:uuid;index" json:"created_by"`

	Children []Folder `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
