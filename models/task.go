package models

import "time"

// TaskStatus represents the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Task is a unit of work inside a project
type Task struct {
	Base
	ProjectID   string     `json:"projectId" gorm:"size:36;not null;index"`
	SectionID   *string    `json:"sectionId" gorm:"size:36;index"`
	AssigneeID  *string    `json:"assigneeId" gorm:"size:36;index"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"default:null"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(20);default:'todo'"`
	DueAt       *time.Time `json:"dueAt"`
}

// SubTask is a checklist item under a task
type SubTask struct {
	Base
	TaskID string `json:"taskId" gorm:"size:36;not null;index"`
	Title  string `json:"title" gorm:"not null"`
	Done   bool   `json:"done" gorm:"default:false"`
}

// TableName keeps the table name aligned with the entity type
func (SubTask) TableName() string {
	return "subtasks"
}

// Comment is a discussion entry on a task
type Comment struct {
	Base
	TaskID   string `json:"taskId" gorm:"size:36;not null;index"`
	AuthorID string `json:"authorId" gorm:"size:36;index"`
	Body     string `json:"body" gorm:"not null"`
}

// TaskTag attaches a label to a task
type TaskTag struct {
	Base
	TaskID string `json:"taskId" gorm:"size:36;not null;index"`
	Label  string `json:"label" gorm:"not null"`
}

// TaskAttachment references an uploaded file on a task
type TaskAttachment struct {
	Base
	TaskID   string `json:"taskId" gorm:"size:36;not null;index"`
	FileName string `json:"fileName" gorm:"not null"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}
