package scene

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

func TestLogScene_SpawnItemLogsPosition(t *testing.T) {
	var buf bytes.Buffer
	s := &LogScene{logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	s.SpawnItem(models.Item{ID: 7, Type: 2, X: 1.5, Y: -3})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "spawn item", line["message"])
	assert.EqualValues(t, 7, line["item_id"])
	assert.EqualValues(t, 1.5, line["x"])
	assert.EqualValues(t, -3, line["y"])
}

func TestLogScene_SpawnAvatarLogsMode(t *testing.T) {
	var buf bytes.Buffer
	s := &LogScene{logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	s.SpawnAvatar(*models.NewAvatar(models.Participant{ID: "a", IsLocal: true, Position: models.Vec2{X: 2, Y: 4}}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "a", line["avatar_id"])
	assert.Equal(t, string(models.ControlModeLocallyDriven), line["mode"])
	assert.EqualValues(t, 2, line["x"])
}
