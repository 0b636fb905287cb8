package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/prizes")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "secret")
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_BACKEND", "")
	t.Setenv("SESSION_LIFETIME", "")
	unsetEnv(t, "RUN_MIGRATIONS")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime)
	assert.Equal(t, "local", cfg.UploadBackend)
	assert.False(t, cfg.RunMigrations)
}

func TestLoadFromEnvFile(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_BACKEND", "")
	// godotenv never overrides variables that are already set, even to "".
	unsetEnv(t, "SESSION_LIFETIME")
	unsetEnv(t, "RUN_MIGRATIONS")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_LIFETIME=2h\nRUN_MIGRATIONS=true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.SessionLifetime)
	assert.True(t, cfg.RunMigrations)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing database url", "DATABASE_URL", ""},
		{"missing admin password", "ADMIN_PASSWORD", ""},
		{"bad lifetime", "SESSION_LIFETIME", "forever"},
		{"bad port", "PORT", "http"},
		{"unknown backend", "UPLOAD_BACKEND", "ftp"},
		{"s3 without bucket", "UPLOAD_BACKEND", "s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("PORT", "")
			t.Setenv("SESSION_LIFETIME", "")
			t.Setenv("UPLOAD_BACKEND", "")
			t.Setenv("S3_BUCKET", "")
			t.Setenv(tt.key, tt.val)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
