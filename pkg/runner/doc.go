// Package runner executes lint jobs end to end.
//
// A run parses and compiles the rule document, opens the record source over
// the fields the rules mention, evaluates every record, formats the report
// stamped with the run's start time and writes it to the sink. Runs are
// recorded in history and metrics when those are configured, including runs
// that fail.
//
//	r := runner.New(cfg, logger, runner.WithHistory(store), runner.WithMetrics(collector))
//	res, err := r.Run(ctx, runner.Job{RulesPath: "rules.json", SourceURI: "csv:parcels.csv"})
package runner
