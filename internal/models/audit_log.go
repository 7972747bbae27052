package models

import "gorm.io/datatypes"

// AuditLog records administrative actions against folders, grants, and bindings.
type AuditLog struct {
	BaseModel

	ActorID    string         `gorm:"type:uuid;index" json:"actor_id"`
	Action     string         `gorm:"not null;index" json:"action"`
	Resource   string         `gorm:"index" json:"resource"`
	ResourceID string         `gorm:"index" json:"resource_id"`
	Details    datatypes.JSON `json:"details"`
}
