// Package sink persists encoded reports.
//
// The file sink writes into a local directory; the S3 sink uploads to a
// bucket (AWS or an S3-compatible store such as MinIO). Report names default
// to "results.json" and always end in ".json".
package sink
