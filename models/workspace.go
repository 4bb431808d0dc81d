package models

// Workspace groups projects and members under an owner
type Workspace struct {
	Base
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description" gorm:"default:null"`
	OwnerID     string `json:"ownerId" gorm:"size:36;not null;index"`
}

// WorkspaceMember links a user to a workspace
type WorkspaceMember struct {
	Base
	WorkspaceID string `json:"workspaceId" gorm:"size:36;not null;index"`
	UserID      string `json:"userId" gorm:"size:36;not null;index"`
	Role        string `json:"role" gorm:"type:varchar(20);default:'member'"`
}

// CalendarEvent is a dated entry on a workspace calendar
type CalendarEvent struct {
	Base
	WorkspaceID string `json:"workspaceId" gorm:"size:36;not null;index"`
	UserID      string `json:"userId" gorm:"size:36;index"`
	Title       string `json:"title" gorm:"not null"`
	StartsAt    string `json:"startsAt"`
	EndsAt      string `json:"endsAt"`
}

// Notification is a message addressed to a single user
type Notification struct {
	Base
	UserID  string `json:"userId" gorm:"size:36;not null;index"`
	Kind    string `json:"kind" gorm:"type:varchar(40)"`
	Message string `json:"message"`
	Read    bool   `json:"read" gorm:"default:false"`
}
