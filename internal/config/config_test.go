package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "gorm", cfg.Store.Driver)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "dj-requests", cfg.Mongo.Database)
	assert.Equal(t, 6, cfg.Rooms.CodeLength)
	assert.Equal(t, 10, cfg.Requests.RecentLimit)
	assert.Equal(t, 200, cfg.Requests.MaxFieldLength)
	assert.False(t, cfg.Requests.StrictTransitions)
	assert.Equal(t, 30*time.Second, cfg.Presence.SyncInterval)
	assert.Equal(t, time.Hour, cfg.Reaper.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Reaper.Retention)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Equal(t, int64(4096), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "playmyjam-activity", cfg.Events.Kafka.Topic)
	assert.Equal(t, "local", cfg.Archive.Driver)
	assert.Equal(t, "./data/archive", cfg.Archive.Local.BasePath)
	assert.Equal(t, "localhost:6379", cfg.Events.Redis.Address)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 8080
requests:
  strict_transitions: true
reaper:
  retention: 2h
archive:
  enabled: true
  driver: s3
  s3:
    bucket: jam-archive
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Requests.StrictTransitions)
	assert.Equal(t, 2*time.Hour, cfg.Reaper.Retention)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "s3", cfg.Archive.Driver)
	assert.Equal(t, "jam-archive", cfg.Archive.S3.Bucket)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
}
