// Package main is the tablint command-line tool.
//
// tablint checks tabular records (CSV, JSON Lines, SQLite, GeoPackage or
// PostgreSQL tables) against a rule document of pattern and range rules and
// writes a JSON report of the offending record identifiers.
//
// Usage:
//
//	tablint run --rules rules.yaml --source parcels.csv
//	tablint check --rules rules.yaml
//	tablint watch --rules rules.yaml --source parcels.csv
//	tablint schedule --cron "@hourly"
//	tablint batch --manifest jobs.yaml --parallel 4
//	tablint history list
//	tablint doctor --rules rules.yaml --source parcels.csv
//	tablint version
package main

func main() {
	Execute()
}
