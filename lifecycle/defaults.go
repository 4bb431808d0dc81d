package lifecycle

import "github.com/tim7en/pm-app-sub001/models"

// DefaultEntries returns the built-in cascade graph
func DefaultEntries() []Entry {
	return []Entry{
		{
			Type: models.EntityUser,
			Cascade: []Edge{
				{Dependent: models.EntityWorkspace, ForeignKey: "owner_id"},
				{Dependent: models.EntityWorkspaceMember, ForeignKey: "user_id"},
				{Dependent: models.EntityProjectMember, ForeignKey: "user_id"},
				{Dependent: models.EntityNotification, ForeignKey: "user_id"},
			},
		},
		{
			Type: models.EntityWorkspace,
			Cascade: []Edge{
				{Dependent: models.EntityProject, ForeignKey: "workspace_id"},
				{Dependent: models.EntityWorkspaceMember, ForeignKey: "workspace_id"},
				{Dependent: models.EntityCalendarEvent, ForeignKey: "workspace_id"},
			},
		},
		{
			Type: models.EntityProject,
			Cascade: []Edge{
				{Dependent: models.EntityTask, ForeignKey: "project_id"},
				{Dependent: models.EntitySection, ForeignKey: "project_id"},
				{Dependent: models.EntityProjectMember, ForeignKey: "project_id"},
			},
		},
		{
			Type: models.EntityTask,
			Cascade: []Edge{
				{Dependent: models.EntityComment, ForeignKey: "task_id"},
				{Dependent: models.EntitySubTask, ForeignKey: "task_id"},
				{Dependent: models.EntityTaskTag, ForeignKey: "task_id"},
				{Dependent: models.EntityTaskAttachment, ForeignKey: "task_id"},
			},
		},
		{Type: models.EntityComment},
		{Type: models.EntitySubTask},
		{Type: models.EntityTaskTag},
		{Type: models.EntityTaskAttachment},
		{Type: models.EntityWorkspaceMember},
		{Type: models.EntityProjectMember},
		{Type: models.EntityCalendarEvent},
		{Type: models.EntityNotification},
		{Type: models.EntitySection},
	}
}

// DefaultRegistry builds the registry for the built-in graph.
// It panics if the built-in graph is invalid.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return r
}
