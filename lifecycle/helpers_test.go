package lifecycle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "lifecycle.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestAdapters(t *testing.T, db *gorm.DB) repositories.Adapters {
	t.Helper()
	adapters, err := repositories.NewAdapters(db)
	require.NoError(t, err)
	return adapters
}

// workspaceTree is a small graph seeded under one workspace
type workspaceTree struct {
	User            *models.User
	Notification    *models.Notification
	Workspace       *models.Workspace
	WorkspaceMember *models.WorkspaceMember
	CalendarEvent   *models.CalendarEvent
	Project         *models.Project
	ProjectMember   *models.ProjectMember
	Section         *models.Section
	Task1           *models.Task
	Task2           *models.Task
	Comments        []*models.Comment
	SubTask         *models.SubTask
	Tag             *models.TaskTag
}

// dependentCount is the number of records below the workspace
const dependentCount = 11

func seedWorkspace(t *testing.T, db *gorm.DB) *workspaceTree {
	t.Helper()

	tree := &workspaceTree{}
	tree.User = &models.User{Email: "owner@example.com", Role: models.RoleUser}
	mustCreate(t, db, tree.User)

	tree.Notification = &models.Notification{UserID: tree.User.ID, Kind: "welcome", Message: "hi"}
	mustCreate(t, db, tree.Notification)

	tree.Workspace = &models.Workspace{Name: "Acme", OwnerID: tree.User.ID}
	mustCreate(t, db, tree.Workspace)

	tree.WorkspaceMember = &models.WorkspaceMember{WorkspaceID: tree.Workspace.ID, UserID: tree.User.ID, Role: "owner"}
	mustCreate(t, db, tree.WorkspaceMember)

	tree.CalendarEvent = &models.CalendarEvent{WorkspaceID: tree.Workspace.ID, UserID: tree.User.ID, Title: "Kickoff"}
	mustCreate(t, db, tree.CalendarEvent)

	tree.Project = &models.Project{Name: "Launch", WorkspaceID: tree.Workspace.ID}
	mustCreate(t, db, tree.Project)

	tree.ProjectMember = &models.ProjectMember{ProjectID: tree.Project.ID, UserID: tree.User.ID, Role: "owner"}
	mustCreate(t, db, tree.ProjectMember)

	tree.Section = &models.Section{ProjectID: tree.Project.ID, Name: "Backlog"}
	mustCreate(t, db, tree.Section)

	tree.Task1 = &models.Task{ProjectID: tree.Project.ID, Title: "Write copy"}
	mustCreate(t, db, tree.Task1)
	tree.Task2 = &models.Task{ProjectID: tree.Project.ID, Title: "Ship it"}
	mustCreate(t, db, tree.Task2)

	for _, body := range []string{"first draft", "looks good"} {
		comment := &models.Comment{TaskID: tree.Task1.ID, AuthorID: tree.User.ID, Body: body}
		mustCreate(t, db, comment)
		tree.Comments = append(tree.Comments, comment)
	}

	tree.SubTask = &models.SubTask{TaskID: tree.Task2.ID, Title: "Tag release"}
	mustCreate(t, db, tree.SubTask)

	tree.Tag = &models.TaskTag{TaskID: tree.Task1.ID, Label: "marketing"}
	mustCreate(t, db, tree.Tag)

	return tree
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	require.NoError(t, db.Create(value).Error)
}

// lifecycleOf reads the stored lifecycle state of a record
func lifecycleOf[T any, PT interface {
	*T
	models.Record
}](t *testing.T, db *gorm.DB, id string) *models.Lifecycle {
	t.Helper()
	var row T
	require.NoError(t, db.Where("id = ?", id).First(&row).Error)
	return PT(&row).LifecycleState()
}

func isDeleted[T any, PT interface {
	*T
	models.Record
}](t *testing.T, db *gorm.DB, id string) bool {
	t.Helper()
	return lifecycleOf[T, PT](t, db, id).IsDeleted()
}

// failingAdapter rejects every update with err
type failingAdapter struct {
	repositories.Adapter
	err error
}

func (a failingAdapter) Update(ctx context.Context, id string, version int64, patch repositories.Patch) (models.Record, error) {
	return nil, a.err
}

// panickingAdapter panics on reads
type panickingAdapter struct {
	repositories.Adapter
}

func (a panickingAdapter) Find(ctx context.Context, q repositories.Query) ([]models.Record, error) {
	panic("storage exploded")
}

// racingAdapter bumps the stored version before the first n updates, as a
// concurrent writer would
type racingAdapter struct {
	repositories.Adapter
	db    *gorm.DB
	model interface{}
	races int
}

func (a *racingAdapter) Update(ctx context.Context, id string, version int64, patch repositories.Patch) (models.Record, error) {
	if a.races > 0 {
		a.races--
		err := a.db.Model(a.model).Where("id = ?", id).
			UpdateColumn(models.ColumnVersion, gorm.Expr("version + ?", 1)).Error
		if err != nil {
			return nil, err
		}
	}
	return a.Adapter.Update(ctx, id, version, patch)
}
