package retention

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
)

func TestSweeper_CleanupRespectsRetentionWindow(t *testing.T) {
	db := openTestDB(t)
	expired := createTask(t, db, "expired", daysAgo(31))
	recent := createTask(t, db, "recent", daysAgo(29))
	live := createTask(t, db, "live", nil)

	metrics := NewMetrics(prometheus.NewRegistry())
	sweeper := newTestSweeper(t, db, nil, DefaultConfig(), WithMetrics(metrics))

	result, err := sweeper.Cleanup(context.Background(), models.EntityTask, CleanupOptions{OlderThanDays: 30})
	require.NoError(t, err)

	assert.Equal(t, models.EntityTask, result.EntityType)
	assert.True(t, fixedNow.AddDate(0, 0, -30).Equal(result.Cutoff))
	assert.False(t, result.DryRun)
	assert.Equal(t, int64(1), result.DeletedCount)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, expired.ID, result.Candidates[0].GetID())
	assert.Empty(t, result.Archive)

	assert.False(t, taskExists(t, db, expired.ID))
	assert.True(t, taskExists(t, db, recent.ID))
	assert.True(t, taskExists(t, db, live.ID))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.purgedRecords.WithLabelValues("task")))
}

func TestSweeper_CleanupDefaultsToConfig(t *testing.T) {
	db := openTestDB(t)
	old := createTask(t, db, "old", daysAgo(8))
	createTask(t, db, "fresh", daysAgo(6))

	sweeper := newTestSweeper(t, db, nil, &Config{RetentionDays: 7})

	result, err := sweeper.Cleanup(context.Background(), models.EntityTask, CleanupOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedCount)
	assert.Equal(t, old.ID, result.Candidates[0].GetID())
	assert.Equal(t, 100, sweeper.Config().BatchSize)
}

func TestSweeper_CleanupDryRun(t *testing.T) {
	db := openTestDB(t)
	expired := createTask(t, db, "expired", daysAgo(45))
	createTask(t, db, "recent", daysAgo(2))

	sweeper := newTestSweeper(t, db, nil, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := sweeper.Cleanup(ctx, models.EntityTask, CleanupOptions{OlderThanDays: 30, DryRun: true})
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.Zero(t, result.DeletedCount)
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, expired.ID, result.Candidates[0].GetID())
	}
	assert.True(t, taskExists(t, db, expired.ID))
}

func TestSweeper_CleanupDryRunIsLogged(t *testing.T) {
	db := openTestDB(t)
	createTask(t, db, "expired", daysAgo(45))

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	sweeper := newTestSweeper(t, db, nil, DefaultConfig(), WithLogger(logger))

	_, err := sweeper.Cleanup(context.Background(), models.EntityTask, CleanupOptions{DryRun: true})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "task", entry["entity"])
	assert.Equal(t, 1.0, entry["candidates"])
	assert.Equal(t, true, entry["dry_run"])
}

func TestSweeper_CleanupBatchesOldestFirst(t *testing.T) {
	db := openTestDB(t)
	oldest := createTask(t, db, "oldest", daysAgo(90))
	older := createTask(t, db, "older", daysAgo(60))
	old := createTask(t, db, "old", daysAgo(40))

	sweeper := newTestSweeper(t, db, nil, DefaultConfig())

	result, err := sweeper.Cleanup(context.Background(), models.EntityTask, CleanupOptions{OlderThanDays: 30, BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.DeletedCount)
	assert.Equal(t, []string{oldest.ID, older.ID}, []string{result.Candidates[0].GetID(), result.Candidates[1].GetID()})
	assert.True(t, taskExists(t, db, old.ID))
}

func TestSweeper_CleanupSkipsRecordsRestoredMeanwhile(t *testing.T) {
	db := openTestDB(t)
	first := createTask(t, db, "first", daysAgo(50))
	second := createTask(t, db, "second", daysAgo(40))

	adapters, err := repositories.NewAdapters(db)
	require.NoError(t, err)
	adapters[models.EntityTask] = restoringAdapter{Adapter: adapters[models.EntityTask], db: db, restoreID: second.ID}

	sweeper := newTestSweeper(t, db, adapters, DefaultConfig())

	result, err := sweeper.Cleanup(context.Background(), models.EntityTask, CleanupOptions{OlderThanDays: 30})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 2)
	assert.Equal(t, int64(1), result.DeletedCount)
	assert.False(t, taskExists(t, db, first.ID))
	assert.True(t, taskExists(t, db, second.ID))
}

func TestSweeper_CleanupWritesArchive(t *testing.T) {
	db := openTestDB(t)
	expired := createTask(t, db, "expired", daysAgo(31))
	dir := filepath.Join(t.TempDir(), "archive")

	sweeper := newTestSweeper(t, db, nil, &Config{ArchiveDir: dir})

	result, err := sweeper.Cleanup(context.Background(), models.EntityTask, CleanupOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Archive)
	assert.Equal(t, dir, filepath.Dir(result.Archive))

	f, err := os.Open(result.Archive)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []models.Task
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		var task models.Task
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &task))
		lines = append(lines, task)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 1)
	assert.Equal(t, expired.ID, lines[0].ID)
	assert.Equal(t, "expired", lines[0].Title)
	assert.NotNil(t, lines[0].DeletedAt)
}

func TestSweeper_CleanupErrors(t *testing.T) {
	db := openTestDB(t)
	sweeper := newTestSweeper(t, db, nil, DefaultConfig())

	_, err := sweeper.Cleanup(context.Background(), "invoice", CleanupOptions{})
	assert.ErrorIs(t, err, lifecycle.ErrNotConfigured)

	_, err = NewSweeper(nil, nil, nil)
	assert.Error(t, err)

	adapters, err := repositories.NewAdapters(db)
	require.NoError(t, err)
	delete(adapters, models.EntityTask)
	_, err = NewSweeper(lifecycle.DefaultRegistry(), adapters, nil)
	assert.ErrorIs(t, err, lifecycle.ErrMissingAdapter)
}

func TestSweeper_SweepAll(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		createTask(t, db, "expired", daysAgo(40+i))
	}
	keep := createTask(t, db, "recent", daysAgo(1))

	comment := &models.Comment{TaskID: "t1", Body: "gone"}
	comment.DeletedAt = daysAgo(35)
	require.NoError(t, db.Create(comment).Error)

	project := &models.Project{Name: "gone", WorkspaceID: "w1"}
	project.DeletedAt = daysAgo(100)
	require.NoError(t, db.Create(project).Error)

	metrics := NewMetrics(prometheus.NewRegistry())
	sweeper := newTestSweeper(t, db, nil, &Config{BatchSize: 2}, WithMetrics(metrics))

	t.Run("dry run", func(t *testing.T) {
		report, err := sweeper.SweepAll(context.Background(), true)
		require.NoError(t, err)
		assert.True(t, report.DryRun)
		assert.Equal(t, int64(2), report.Candidates[models.EntityTask], "dry runs inspect a single batch")
		assert.Equal(t, int64(0), report.Total())
		assert.True(t, taskExists(t, db, keep.ID))

		var count int64
		require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
		assert.Equal(t, int64(6), count)
	})

	t.Run("erases in batches", func(t *testing.T) {
		report, err := sweeper.SweepAll(context.Background(), false)
		require.NoError(t, err)
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, int64(5), report.Deleted[models.EntityTask])
		assert.Equal(t, int64(1), report.Deleted[models.EntityComment])
		assert.Equal(t, int64(1), report.Deleted[models.EntityProject])
		assert.Equal(t, int64(7), report.Total())
		assert.Empty(t, report.Failures)

		var count int64
		require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
		assert.True(t, taskExists(t, db, keep.ID))
		assert.Equal(t, 5.0, testutil.ToFloat64(metrics.purgedRecords.WithLabelValues("task")))
	})
}

func TestSweeper_SweepAllArchivesEveryBatch(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		createTask(t, db, "expired", daysAgo(40+i))
	}
	dir := t.TempDir()

	sweeper := newTestSweeper(t, db, nil, &Config{BatchSize: 2, ArchiveDir: dir})

	report, err := sweeper.SweepAll(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, int64(5), report.Deleted[models.EntityTask])

	files, err := filepath.Glob(filepath.Join(dir, "task-*.jsonl.gz"))
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestSweeper_SweepAllStopsAtMaxBatches(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		createTask(t, db, "expired", daysAgo(40+i))
	}

	sweeper := newTestSweeper(t, db, nil, &Config{BatchSize: 2, MaxBatches: 2})

	report, err := sweeper.SweepAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Deleted[models.EntityTask])
}

func TestSweeper_SweepAllIsolatesFailures(t *testing.T) {
	db := openTestDB(t)
	createTask(t, db, "expired", daysAgo(40))
	comment := &models.Comment{TaskID: "t1", Body: "gone"}
	comment.DeletedAt = daysAgo(40)
	require.NoError(t, db.Create(comment).Error)

	adapters, err := repositories.NewAdapters(db)
	require.NoError(t, err)
	errBoom := errors.New("foreign key violation")
	adapters[models.EntityComment] = brokenDeleteAdapter{Adapter: adapters[models.EntityComment], err: errBoom}

	metrics := NewMetrics(prometheus.NewRegistry())
	sweeper := newTestSweeper(t, db, adapters, DefaultConfig(), WithMetrics(metrics))

	report, err := sweeper.SweepAll(context.Background(), false)
	assert.ErrorIs(t, err, errBoom)
	require.NotNil(t, report)
	assert.Contains(t, report.Failures[models.EntityComment], "foreign key violation")
	assert.Equal(t, int64(1), report.Deleted[models.EntityTask])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sweepFailures.WithLabelValues("comment")))
}
