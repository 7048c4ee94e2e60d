package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_CONFIG", "APP_STORE", "HTTP_PORT", "JWT_TTL", "APP_SEED", "SHOP_BACKEND"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.Seed)
	assert.Equal(t, "http", cfg.Client.Backend)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: "9000"
store: memory
jwt_ttl: 24h
admin_emails: [root@shop.test]
client:
  backend: redis
  redis_namespace: yaml-ns
`), 0o600))

	t.Setenv("APP_CONFIG", path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SHOP_REDIS_NAMESPACE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "redis", cfg.Client.Backend)
	assert.Equal(t, "yaml-ns", cfg.Client.RedisNamespace)
	assert.True(t, cfg.IsAdminEmail("root@shop.test"))
	assert.False(t, cfg.IsAdminEmail("ROOT@shop.test"))
	assert.False(t, cfg.IsAdminEmail("user@shop.test"))
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	t.Setenv("APP_STORE", "sqlite")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsDefaultSecretInProd(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	t.Setenv("APP_STORE", "")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = LoadClient()
	assert.NoError(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "a-real-secret", cfg.JWTSecret)
}

func TestGetList(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " a@x.io, ,b@x.io ")
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, getList("ADMIN_EMAILS", nil))
}
