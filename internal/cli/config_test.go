package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "gridsync.db", cfg.Database)
	assert.Equal(t, "default", cfg.UserID)
	assert.Equal(t, 5*time.Second, cfg.Autosave.Std())
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9999"
database: /tmp/test.db
user_id: alice
autosave: 30s
heartbeat: 10s
outbox_capacity: 256
actor:
  label: Alice
  color: "#ff00ff"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "/tmp/test.db", cfg.Database)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, 30*time.Second, cfg.Autosave.Std())
	assert.Equal(t, 10*time.Second, cfg.Heartbeat.Std())
	assert.Equal(t, 256, cfg.OutboxCapacity)
	assert.Equal(t, "Alice", cfg.Actor.Label)
	assert.Equal(t, "#ff00ff", cfg.Actor.Color)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: bob\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.UserID)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.Autosave.Std())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
