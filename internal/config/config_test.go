package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileEnvAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
redis:
  addr: localhost:6379
quiz:
  question_count: 8
  score_threshold: 5
  track_usage: false
images:
  allowed_extensions: [".PNG", "gif"]
`), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port, "env overrides file")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Admin.JWTSecret)
	assert.Equal(t, 8, cfg.Quiz.QuestionCount)
	assert.Equal(t, 5, cfg.Quiz.ScoreThreshold)
	require.NotNil(t, cfg.Quiz.TrackUsage)
	assert.False(t, *cfg.Quiz.TrackUsage)
	assert.Equal(t, []string{"png", "gif"}, cfg.Images.AllowedExtensions)
	assert.Equal(t, int64(5<<20), cfg.Images.MaxBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Quiz.QuestionCount)
	assert.Equal(t, 300*time.Second, TTLDuration(cfg.Quiz.QuestionDuration, 0))
	require.NotNil(t, cfg.Quiz.TrackUsage)
	assert.True(t, *cfg.Quiz.TrackUsage)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, TTLDuration("90s", time.Minute))
}
