package models

import "time"

// WorkflowBinding maps an engine workflow to the folder that scopes its access
// control. A workflow without a row is unassigned.
type WorkflowBinding struct {
	BaseModel

	WorkflowID string    `gorm:"not null;uniqueIndex" json:"workflow_id"`
	FolderID   string    `gorm:"type:uuid;not null;index" json:"folder_id"`
	AssignedBy string    `gorm:"type:uuid" json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// TableName overrides the default table name for GORM.
func (WorkflowBinding) TableName() string {
	return "workflow_bindings"
}
