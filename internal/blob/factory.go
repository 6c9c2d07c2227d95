// Package blob opens the configured blob store used for backup archives.
package blob

import (
	"context"
	"fmt"

	"sizes/internal/blob/core"
	"sizes/internal/config"
	"sizes/internal/infra/blob/fs"
	"sizes/internal/infra/blob/memory"
	"sizes/internal/infra/blob/s3"
)

// Store re-exports the blob contract for callers outside this package tree.
type Store = core.Store

// Open selects a blob store implementation from cfg:
//
//	fs      local directory at FSRoot (default)
//	memory  process memory, lost on exit
//	s3      S3 or MinIO bucket
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch core.Driver(cfg.Driver) {
	case core.DriverFilesystem, "":
		return fs.New(cfg.FSRoot)
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
