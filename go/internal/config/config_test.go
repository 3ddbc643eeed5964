package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "lobby", cfg.Room.ID)
	assert.Equal(t, 100, cfg.World.InitialItems)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
room:
  id: arena-7
  presence_ttl: 20s
  heartbeat_interval: 5s
  guarded_writes: true
world:
  initial_items: 12
  max_batch_size: 5
  spawn_batch_size: 5
  bounds: {min_x: 0, max_x: 10, min_y: 0, max_y: 20}
gateway:
  addr: ":9000"
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "arena-7", cfg.Room.ID)
	assert.Equal(t, 20*time.Second, cfg.Room.PresenceTTL)
	assert.True(t, cfg.Room.GuardedWrites)
	assert.Equal(t, 12, cfg.World.InitialItems)
	// Unset keys keep their defaults.
	assert.Equal(t, 4, cfg.World.ItemTypes)
	assert.Equal(t, ":9000", cfg.Gateway.Addr)

	cc := cfg.ToController()
	assert.Equal(t, 5, cc.Authority.MaxBatchSize)
	assert.Equal(t, 20.0, cc.Bounds.MaxY)

	nc := cfg.ToNATSRoom("p1")
	assert.Equal(t, "arena-7", nc.RoomID)
	assert.Equal(t, "p1", nc.ParticipantID)
	assert.Equal(t, 5*time.Second, nc.HeartbeatInterval)

	assert.Equal(t, ":9000", cfg.ToGateway().Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "room:\n  id: from-file\n")
	t.Setenv("ROOM_ID", "from-env")
	t.Setenv("INITIAL_ITEMS", "7")
	t.Setenv("MIN_ITEMS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Room.ID)
	assert.Equal(t, 7, cfg.World.InitialItems)
	assert.Equal(t, Default().World.MinItems, cfg.World.MinItems)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "room:\n  colour: red\n"},
		{name: "bad room id", body: "room:\n  id: \"a room\"\n"},
		{name: "bad duration", body: "room:\n  presence_ttl: soon\n"},
		{name: "negative items", body: "world:\n  initial_items: -1\n"},
		{name: "bad level", body: "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := Parse([]byte(tt.body), &cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "ttl below heartbeat", mutate: func(c *Config) { c.Room.PresenceTTL = c.Room.HeartbeatInterval }},
		{name: "batch above max", mutate: func(c *Config) { c.World.SpawnBatchSize = c.World.MaxBatchSize + 1 }},
		{name: "empty bounds", mutate: func(c *Config) { c.World.Bounds.MaxX = c.World.Bounds.MinX }},
		{name: "missing room", mutate: func(c *Config) { c.Room.ID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
