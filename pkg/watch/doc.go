// Package watch re-runs lint when the rule document or a file-based record
// source changes on disk.
//
//	w, err := watch.New(watch.Config{Paths: []string{"rules.json", "parcels.csv"}}, logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	return w.Watch(ctx, func(ctx context.Context, changed []string) {
//	    runner.Run(ctx, job)
//	})
package watch
