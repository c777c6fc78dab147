// Package history records lint runs so past results can be listed and
// compared.
//
// SQLiteStore is the durable backend used by the CLI; MemoryStore serves
// tests and embedded use. Both return the most recent runs first.
//
//	store, err := history.OpenSQLite(history.SQLiteConfig{Path: "tablint-history.db", WALMode: true}, logger)
//	...
//	runs, err := store.List(ctx, 10)
package history
