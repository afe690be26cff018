// Package export serializes portfolio positions and resolved signals as
// flat CSV records for external dashboards.
package export

import (
	"context"
	"fmt"

	"github.com/newthinker/aegis/internal/config"
)

// Sink is a destination for exported records.
type Sink interface {
	// Write stores data at the given path.
	Write(ctx context.Context, path string, data []byte) error

	// List returns all paths matching the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path.
	Delete(ctx context.Context, path string) error
}

// NewSink creates the configured sink backend.
func NewSink(cfg config.ExportConfig) (Sink, error) {
	switch cfg.Type {
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown export type: %s", cfg.Type)
	}
}
