// Package config loads tablint's application configuration.
//
// Configuration comes from, in increasing precedence:
//
//  1. built-in defaults (see defaults.go)
//  2. an optional YAML file (--config)
//  3. a .env file in the working directory, if present
//  4. TABLINT_* environment variables
//
// Environment variable names follow the YAML structure:
//
//	run.id_field            TABLINT_RUN_ID_FIELD
//	sink.s3.bucket          TABLINT_SINK_S3_BUCKET
//	telemetry.logging.level TABLINT_TELEMETRY_LOGGING_LEVEL
//
// Example file:
//
//	run:
//	  id_field: fid
//	  on_type_mismatch: fail
//	source:
//	  uri: gpkg:city.gpkg?table=parcels
//	sink:
//	  kind: s3
//	  s3:
//	    bucket: lint-reports
//	history:
//	  enabled: true
//
// Command-line flags override everything here; that merge happens in the
// command implementations.
package config
