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
	v := NewViper()
	v.Set("jwt.secret", "s3cret")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "workout_engine", cfg.Database.Name)
	assert.Equal(t, 6*time.Hour, cfg.Workout.StaleAfter)
	assert.Equal(t, 5, cfg.Store.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.S3.URLExpiry)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.TokenTTL)
	assert.False(t, cfg.S3.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("WORKOUT_STALE_AFTER", "90m")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 90*time.Minute, cfg.Workout.StaleAfter)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  address: ":9090"
jwt:
  secret: file-secret
store:
  max_attempts: 9
s3:
  enabled: true
  bucket_name: archives
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 9, cfg.Store.MaxAttempts)
	assert.True(t, cfg.S3.Enabled)
	assert.Equal(t, "archives", cfg.S3.BucketName)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	_, err := LoadConfig(t.TempDir())
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(v map[string]any){
		"missing secret":   func(v map[string]any) { delete(v, "jwt.secret") },
		"unknown driver":   func(v map[string]any) { v["database.driver"] = "sqlite" },
		"zero attempts":    func(v map[string]any) { v["store.max_attempts"] = 0 },
		"bucket required":  func(v map[string]any) { v["s3.enabled"] = true },
		"analytics secret": func(v map[string]any) { v["analytics.endpoint"] = "http://analytics" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			values := map[string]any{"jwt.secret": "s3cret"}
			mutate(values)
			v := NewViper()
			for k, val := range values {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
