// Package lifecycle implements cascading soft delete and restore over the
// managed entity graph.
//
// A Registry declares which entity types are lifecycle-managed and which
// dependent types follow a parent through a transition:
//
//	registry := lifecycle.DefaultRegistry()
//	operator, err := lifecycle.NewOperator(registry, adapters,
//	    lifecycle.WithLogger(log),
//	)
//
//	// Soft delete a workspace and everything below it
//	result, err := operator.SoftDelete(ctx, models.EntityWorkspace,
//	    repositories.Filter{"id": workspaceID},
//	    lifecycle.WithActor(userID), lifecycle.WithReason("closed"),
//	)
//
//	// Bring the workspace back without touching its projects
//	result, err = operator.Restore(ctx, models.EntityWorkspace,
//	    repositories.Filter{"id": workspaceID},
//	)
//
// The primary records are the unit of atomicity. Once they are updated the
// call succeeds; failures in cascade branches are logged, counted and listed
// in Result.Failures but never returned as an error. Re-running the same
// call closes any gap left by a failed branch.
//
// Ordinary reads must go through ExcludingDeleted so that soft-deleted rows
// stay invisible outside of the recycle bin.
package lifecycle
