package models

import "time"

// FolderPermission stores one grant per (folder, user) pair. Granting again
// upserts the level; the composite unique index backs that contract.
type FolderPermission struct {
	BaseModel

	FolderID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_folder_user,priority:1" json:"folder_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_folder_user,priority:2" json:"user_id"`
	Level     string    `gorm:"type:varchar(16);not null" json:"level"`
	GrantedBy string    `gorm:"type:uuid" json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName overrides the default table name for GORM.
func (FolderPermission) TableName() string {
	return "folder_permissions"
}
