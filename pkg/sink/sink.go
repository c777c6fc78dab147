package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/tablint/pkg/config"
)

// DefaultFileName is the report name used when none is given.
const DefaultFileName = config.DefaultOutputFile

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid sink configuration")
	ErrWriteFailed   = errors.New("failed to write report")
)

// Sink persists encoded reports.
type Sink interface {
	// Write stores data under name and returns where it ended up, as a
	// path or URL suitable for showing to the user.
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// FileName normalises a report file name: empty becomes DefaultFileName and
// ".json" is appended when missing.
func FileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultFileName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".json") {
		name += ".json"
	}
	return name
}

// New builds the sink selected by cfg. outputDir is used by the file sink.
func New(ctx context.Context, cfg *config.SinkConfig, outputDir string, opts ...S3Option) (Sink, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "file":
		return NewFile(outputDir), nil
	case "s3":
		return NewS3(ctx, cfg.S3, opts...)
	}
	return nil, fmt.Errorf("%w: unknown sink kind %q", ErrInvalidConfig, cfg.Kind)
}
