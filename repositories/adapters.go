package repositories

import (
	"fmt"

	"github.com/tim7en/pm-app-sub001/models"
	"gorm.io/gorm"
)

// NewAdapters creates a gorm store for every managed entity type
func NewAdapters(db *gorm.DB) (Adapters, error) {
	adapters := make(Adapters)

	steps := []func() error{
		func() error { return register[models.User](adapters, models.EntityUser, db) },
		func() error { return register[models.Workspace](adapters, models.EntityWorkspace, db) },
		func() error { return register[models.WorkspaceMember](adapters, models.EntityWorkspaceMember, db) },
		func() error { return register[models.Project](adapters, models.EntityProject, db) },
		func() error { return register[models.ProjectMember](adapters, models.EntityProjectMember, db) },
		func() error { return register[models.Section](adapters, models.EntitySection, db) },
		func() error { return register[models.Task](adapters, models.EntityTask, db) },
		func() error { return register[models.SubTask](adapters, models.EntitySubTask, db) },
		func() error { return register[models.Comment](adapters, models.EntityComment, db) },
		func() error { return register[models.TaskTag](adapters, models.EntityTaskTag, db) },
		func() error { return register[models.TaskAttachment](adapters, models.EntityTaskAttachment, db) },
		func() error { return register[models.CalendarEvent](adapters, models.EntityCalendarEvent, db) },
		func() error { return register[models.Notification](adapters, models.EntityNotification, db) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	return adapters, nil
}

func register[T any, PT recordPtr[T]](adapters Adapters, entity models.EntityType, db *gorm.DB) error {
	store, err := NewGormStore[T, PT](db)
	if err != nil {
		return fmt.Errorf("failed to build %s adapter: %w", entity, err)
	}
	adapters[entity] = store
	return nil
}

// Get returns the adapter for an entity type
func (a Adapters) Get(entity models.EntityType) (Adapter, bool) {
	adapter, ok := a[entity]
	return adapter, ok
}
