package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "https://api.purpurmc.org/v2/purpur", cfg.Endpoint)
	assert.Equal(t, "lock.json", cfg.LockPath)
	assert.Equal(t, "downloads", cfg.DownloadDir)
	assert.Equal(t, 3, cfg.KeepVersions)
	assert.Equal(t, 3, cfg.KeepBuilds)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.Retries)
	assert.Equal(t, time.Second, cfg.HTTP.BackoffFactor)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Backend.Type)
	assert.Equal(t, "us-east-1", cfg.Backend.S3.Region)
	assert.False(t, cfg.Trace.Enable)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Empty(t, cfg.Signing.KeyPath)
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"KELOCK_ENDPOINT":                  "http://localhost:8080/v2/purpur",
		"KELOCK_KEEP_BUILDS":               "1",
		"KELOCK_HTTP_TIMEOUT":              "30s",
		"KELOCK_HTTP_BACKOFF_FACTOR":       "250ms",
		"KELOCK_LOG_FORMAT":                "json",
		"KELOCK_BACKEND_TYPE":              "s3",
		"KELOCK_BACKEND_S3_BUCKET":         "mirror",
		"KELOCK_BACKEND_S3_USE_PATH_STYLE": "true",
		"KELOCK_TRACE_ENABLE":              "true",
		"ENDPOINT":                         "http://ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/v2/purpur", cfg.Endpoint)
	assert.Equal(t, 1, cfg.KeepBuilds)
	assert.Equal(t, 3, cfg.KeepVersions)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTP.BackoffFactor)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "s3", cfg.Backend.Type)
	assert.Equal(t, "mirror", cfg.Backend.S3.Bucket)
	assert.True(t, cfg.Backend.S3.UsePathStyle)
	assert.True(t, cfg.Trace.Enable)
}

func TestLoadWith_Invalid(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"KELOCK_KEEP_VERSIONS": "three",
	}))
	require.Error(t, err)
}

func TestLoadWith_RejectsOutOfRange(t *testing.T) {
	for _, env := range []map[string]string{
		{"KELOCK_KEEP_VERSIONS": "0"},
		{"KELOCK_KEEP_BUILDS": "0"},
		{"KELOCK_KEEP_BUILDS": "-1"},
		{"KELOCK_HTTP_RETRIES": "-1"},
	} {
		_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
		require.ErrorIs(t, err, ErrInvalidConfig, env)
	}

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"KELOCK_HTTP_RETRIES": "0",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.HTTP.Retries)
}
