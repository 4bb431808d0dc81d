package retention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "retention.db")), &gorm.Config{
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

func newTestSweeper(t *testing.T, db *gorm.DB, adapters repositories.Adapters, config *Config, opts ...Option) *Sweeper {
	t.Helper()
	if adapters == nil {
		var err error
		adapters, err = repositories.NewAdapters(db)
		require.NoError(t, err)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	sweeper, err := NewSweeper(lifecycle.DefaultRegistry(), adapters, config, opts...)
	require.NoError(t, err)
	return sweeper
}

func daysAgo(days int) *time.Time {
	ts := fixedNow.AddDate(0, 0, -days)
	return &ts
}

func createTask(t *testing.T, db *gorm.DB, title string, deletedAt *time.Time) *models.Task {
	t.Helper()
	task := &models.Task{ProjectID: "p1", Title: title}
	task.DeletedAt = deletedAt
	require.NoError(t, db.Create(task).Error)
	return task
}

func taskExists(t *testing.T, db *gorm.DB, id string) bool {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error)
	return count == 1
}

// restoringAdapter restores one record between candidate selection and deletion
type restoringAdapter struct {
	repositories.Adapter
	db        *gorm.DB
	restoreID string
}

func (a restoringAdapter) Find(ctx context.Context, q repositories.Query) ([]models.Record, error) {
	records, err := a.Adapter.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	err = a.db.Model(&models.Task{}).Where("id = ?", a.restoreID).
		UpdateColumn(models.ColumnDeletedAt, nil).Error
	return records, err
}

// brokenDeleteAdapter fails every delete
type brokenDeleteAdapter struct {
	repositories.Adapter
	err error
}

func (a brokenDeleteAdapter) Delete(ctx context.Context, filter repositories.Filter) (int64, error) {
	return 0, a.err
}
