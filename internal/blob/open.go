package blob

import (
	"context"
	"fmt"

	"provenant/internal/platform/config"
)

// Open selects the driver named by cfg.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemory(cfg.MaxBytes), nil
	case config.DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			MaxBytes:  cfg.MaxBytes,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
