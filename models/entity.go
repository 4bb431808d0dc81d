package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityType names a kind of lifecycle-managed record
type EntityType string

const (
	EntityUser            EntityType = "user"
	EntityWorkspace       EntityType = "workspace"
	EntityProject         EntityType = "project"
	EntityTask            EntityType = "task"
	EntityComment         EntityType = "comment"
	EntitySubTask         EntityType = "subtask"
	EntityTaskTag         EntityType = "task_tag"
	EntityTaskAttachment  EntityType = "task_attachment"
	EntityWorkspaceMember EntityType = "workspace_member"
	EntityProjectMember   EntityType = "project_member"
	EntityCalendarEvent   EntityType = "calendar_event"
	EntityNotification    EntityType = "notification"
	EntitySection         EntityType = "section"
)

// Column names shared by every lifecycle-managed table
const (
	ColumnID            = "id"
	ColumnVersion       = "version"
	ColumnDeletedAt     = "deleted_at"
	ColumnDeletedBy     = "deleted_by"
	ColumnDeleteReason  = "delete_reason"
	ColumnRestoredAt    = "restored_at"
	ColumnRestoredBy    = "restored_by"
	ColumnRestoreReason = "restore_reason"
)

// Lifecycle holds the soft-delete and restore provenance of a record.
// DeletedAt is nil while the record is live.
type Lifecycle struct {
	DeletedAt     *time.Time `json:"deletedAt" gorm:"index"`
	DeletedBy     *string    `json:"deletedBy" gorm:"size:64"`
	DeleteReason  *string    `json:"deleteReason"`
	RestoredAt    *time.Time `json:"restoredAt"`
	RestoredBy    *string    `json:"restoredBy" gorm:"size:64"`
	RestoreReason *string    `json:"restoreReason"`
	Version       int64      `json:"version" gorm:"not null;default:1"`
}

// IsDeleted reports whether the record is currently soft-deleted
func (l *Lifecycle) IsDeleted() bool {
	return l.DeletedAt != nil
}

// Base is embedded in every managed model
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Lifecycle
}

// BeforeCreate assigns a UUID when the caller did not supply one
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

// GetID returns the primary key
func (b *Base) GetID() string {
	return b.ID
}

// GetVersion returns the optimistic concurrency stamp
func (b *Base) GetVersion() int64 {
	return b.Version
}

// LifecycleState exposes the soft-delete fields
func (b *Base) LifecycleState() *Lifecycle {
	return &b.Lifecycle
}

// Record is implemented by a pointer to every managed model
type Record interface {
	GetID() string
	GetVersion() int64
	LifecycleState() *Lifecycle
}

// All returns an empty instance of every managed model, in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Workspace{},
		&WorkspaceMember{},
		&Project{},
		&ProjectMember{},
		&Section{},
		&Task{},
		&SubTask{},
		&Comment{},
		&TaskTag{},
		&TaskAttachment{},
		&CalendarEvent{},
		&Notification{},
	}
}
