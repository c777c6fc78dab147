// Package engine evaluates records against a compiled rule plan.
//
// For each record, in stream order, every field binding whose field is
// present is applied and violating record identifiers are appended to the
// binding's failure set. Then every group is decided from its members'
// failure sets: ALL requires every member set to contain the identifier,
// ANY requires at least one. A record missing a configured field is not an
// error; that field's bindings are skipped.
//
// Failure sets are never deduplicated. A record identifier that appears
// twice in the stream may appear twice in a failure set, and because group
// verdicts test set membership, a repeated identifier also sees failures
// recorded for its earlier occurrence.
//
// Range rules applied to non-numeric values follow Config.OnTypeMismatch.
//
// Basic usage:
//
//	eng, err := engine.New(plan, engine.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	state, stats, err := eng.Run(ctx, iterator)
package engine
