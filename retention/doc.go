// Package retention physically erases records that have stayed soft-deleted
// longer than the retention window.
//
// # Manual cleanup
//
//	sweeper, err := retention.NewSweeper(registry, adapters, retention.DefaultConfig())
//	result, err := sweeper.Cleanup(ctx, models.EntityTask, retention.CleanupOptions{
//	    OlderThanDays: 30,
//	    BatchSize:     100,
//	    DryRun:        true,
//	})
//
// A dry run returns the candidates without touching storage. A real run
// deletes exactly the candidates it selected, by id, and only while they are
// still deleted and older than the cutoff, so records restored in the
// meantime survive.
//
// The sweeper never cascades. Dependents were soft-deleted together with
// their parent, so each entity type is swept on its own. SweepAll visits every
// registered type, dependents before parents.
//
// # Scheduling
//
// The Scheduler runs SweepAll on a cron expression:
//
//   - "0 3 * * *": Daily at 3 AM (default)
//   - "0 */6 * * *": Every 6 hours
//   - "": disabled, Start returns immediately
//
// # Archiving
//
// When ArchiveDir is set, every batch is written as gzip-compressed JSON
// lines before it is deleted. A failed archive aborts the deletion.
package retention
