// Package source supplies records to lint runs.
//
// A Source is opened from a URI and streams records through a single-use
// Iterator. Each record carries the value of the identifier column and the
// requested fields that the source actually has; absent fields are left out
// so the engine skips their rules for that record.
//
// Backends:
//
//	csv:parcels.csv                               header row, string values
//	jsonl:parcels.jsonl                           one object per line, json.Number values
//	sqlite:city.db?table=parcels                  SQLite table (modernc.org/sqlite)
//	gpkg:city.gpkg?table=parcels                  GeoPackage feature table, identifier "fid"
//	postgres://user@host/gis?table=public.parcels PostgreSQL or PostGIS (pgx)
//
// Open and read failures are data access errors (see package rules/errors).
package source
