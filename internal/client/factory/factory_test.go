package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/shop-backend/internal/client/httpbackend"
	"github.com/baharkarakas/shop-backend/internal/client/localbackend"
	"github.com/baharkarakas/shop-backend/internal/client/redisbackend"
	"github.com/baharkarakas/shop-backend/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := []struct {
		name string
		cfg  config.ClientConfig
		want any
	}{
		{"default", config.ClientConfig{APIBaseURL: "http://127.0.0.1:1"}, &httpbackend.Backend{}},
		{"local", config.ClientConfig{Backend: "local", LocalPath: filepath.Join(t.TempDir(), "shop.json")}, &localbackend.Backend{}},
		{"redis", config.ClientConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr() + "/0"}, &redisbackend.Backend{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := New(ctx, tc.cfg)
			require.NoError(t, err)
			defer b.Close()
			assert.IsType(t, tc.want, b)
		})
	}
}

func TestNewRejectsUnknownOrUnreachable(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, config.ClientConfig{Backend: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = New(ctx, config.ClientConfig{Backend: "redis", RedisURL: "not a url"})
	assert.Error(t, err)
}
