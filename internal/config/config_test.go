package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "crowsnest-auth-access", cfg.SessionCookieName)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/admin/login", cfg.AdminLoginPath)
	assert.Equal(t, 10*time.Second, cfg.AuthAPITimeout)
	assert.Equal(t, RateLimitStoreMemory, cfg.RateLimitStore)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_API_URL", "https://example.com/auth/api")
	t.Setenv("SESSION_COOKIE_NAME", "other-cookie")
	t.Setenv("AUTH_API_TIMEOUT", "3s")
	t.Setenv("LOGIN_REQUESTS_PER_MINUTE", "5")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "https://example.com/auth/api", cfg.AuthAPIURL)
	assert.Equal(t, "other-cookie", cfg.SessionCookieName)
	assert.Equal(t, 3*time.Second, cfg.AuthAPITimeout)
	assert.Equal(t, 5, cfg.LoginRequestsPerMin)
	assert.False(t, cfg.MetricsEnabled)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsRelativeAuthURL(t *testing.T) {
	cfg := Load()
	cfg.AuthAPIURL = "/auth/api"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyCookieName(t *testing.T) {
	cfg := Load()
	cfg.SessionCookieName = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsRelativeLoginPath(t *testing.T) {
	cfg := Load()
	cfg.LoginPath = "login"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownRateLimitStore(t *testing.T) {
	cfg := Load()
	cfg.RateLimitStore = "etcd"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RedisStoreRequiresAddr(t *testing.T) {
	cfg := Load()
	cfg.RateLimitStore = RateLimitStoreRedis
	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())
}
