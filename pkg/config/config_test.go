package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "X-Tenant-ID", cfg.Tenant.Header)
	assert.Equal(t, 5*time.Minute, cfg.Tenant.CacheTTL)
	assert.Equal(t, 20, cfg.Enrollment.DefaultCapacity)
	assert.Equal(t, 30*time.Minute, cfg.Certificates.SignedURLTTL)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("TENANT_BASE_DOMAIN", ".eduorg.test")
	t.Setenv("DEFAULT_COURSE_CAPACITY", "0")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("MAIL_PROVIDER", "SendGrid")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "eduorg.test", cfg.Tenant.BaseDomain)
	assert.Equal(t, 20, cfg.Enrollment.DefaultCapacity)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "sendgrid", cfg.Mail.Provider)
	assert.Equal(t, "https://app.example.com", cfg.Mail.AppBaseURL)
}
