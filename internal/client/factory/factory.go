// Package factory builds the client.Backend selected by configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/baharkarakas/shop-backend/internal/client"
	"github.com/baharkarakas/shop-backend/internal/client/httpbackend"
	"github.com/baharkarakas/shop-backend/internal/client/localbackend"
	"github.com/baharkarakas/shop-backend/internal/client/redisbackend"
	"github.com/baharkarakas/shop-backend/internal/config"
)

// New returns the adapter named by cfg.Backend: "http" (default), "local" or
// "redis". The caller owns the result and must Close it.
func New(ctx context.Context, cfg config.ClientConfig) (client.Backend, error) {
	switch cfg.Backend {
	case "", "http":
		return httpbackend.New(ctx, cfg, nil), nil
	case "local":
		var store localbackend.Storage
		if cfg.LocalPath == "" {
			store = localbackend.NewMemoryStorage(cfg.LocalQuota)
		} else {
			fs, err := localbackend.OpenFileStorage(cfg.LocalPath, cfg.LocalQuota)
			if err != nil {
				return nil, err
			}
			store = fs
		}
		return localbackend.New(ctx, cfg, store)
	case "redis":
		return redisbackend.New(ctx, cfg, nil)
	default:
		return nil, fmt.Errorf("unknown client backend %q", cfg.Backend)
	}
}
