package remote

import (
	"context"
	"fmt"

	"pinpoint-go/internal/config"
	"pinpoint-go/internal/world"
)

// NewStoreFromConfig creates a RemoteStore implementation based on the remote config type.
func NewStoreFromConfig(ctx context.Context, cfg config.RemoteConfig) (world.RemoteStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
