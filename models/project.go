package models

// Project represents a project container inside a workspace
type Project struct {
	Base
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description" gorm:"default:null"`
	WorkspaceID string `json:"workspaceId" gorm:"size:36;not null;index"`
}

// ProjectMember links a user to a project
type ProjectMember struct {
	Base
	ProjectID string `json:"projectId" gorm:"size:36;not null;index"`
	UserID    string `json:"userId" gorm:"size:36;not null;index"`
	Role      string `json:"role" gorm:"type:varchar(20);default:'member'"`
}

// Section is an ordered column or group of tasks within a project
type Section struct {
	Base
	ProjectID string `json:"projectId" gorm:"size:36;not null;index"`
	Name      string `json:"name" gorm:"not null"`
	Position  int    `json:"position" gorm:"default:0"`
}
