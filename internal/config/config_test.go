package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "comprovantes", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UseSSL)
	assert.False(t, cfg.Storage.Configured())
	assert.Equal(t, "admin@rbn.local", cfg.Admin.Email)
	assert.Equal(t, DefaultAdminPassword, cfg.Admin.Password)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "s3cret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadStorage(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORAGE_ENDPOINT", "s3.example.com")
	t.Setenv("STORAGE_ACCESS_KEY", "key")
	t.Setenv("STORAGE_SECRET_KEY", "secret")
	t.Setenv("STORAGE_USE_SSL", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Storage.Configured())
	assert.False(t, cfg.Storage.UseSSL)
}
