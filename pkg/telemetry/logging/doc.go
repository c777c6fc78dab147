// Package logging provides structured logging for tablint runs.
//
// The package wraps log/slog:
//   - JSON, text and console formats
//   - credential redaction for connection strings and secret-looking keys
//   - run fields (run_id, rules_path, source) carried on context.Context
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "text", Redact: true})
//	if err != nil {
//	    return err
//	}
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "run started", "source", "postgres://lint:secret@db/gis")
//	// run_id=... source=postgres://lint:***@db/gis
//
// Components that take a *slog.Logger receive Logger.Slog().
package logging
