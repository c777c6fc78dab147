// Package health checks that a lint run's dependencies are usable before
// the run starts.
//
// Each check is a function of a context. Checks run concurrently, each
// with its own timeout, and results come back in registration order:
//
//	checker := health.New(5 * time.Second)
//	checker.Register("rules", func(ctx context.Context) error {
//	    _, err := runner.Check(rulesPath)
//	    return err
//	})
//	checker.Register("history", func(ctx context.Context) error {
//	    if !cfg.History.Enabled {
//	        return health.ErrSkipped
//	    }
//	    ...
//	})
//	report := checker.Run(ctx)
//	if !report.Healthy() { ... }
//
// A check returning ErrSkipped is reported as skipped and does not make
// the report unhealthy.
package health
