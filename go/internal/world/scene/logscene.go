package scene

import (
	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ controller.Scene = (*LogScene)(nil)

// LogScene is a headless scene that records every presentation call in the
// structured log. It backs the world service and the demo.
type LogScene struct {
	logger zerolog.Logger
}

// NewLogScene creates a scene whose log lines carry participantID
func NewLogScene(participantID string) *LogScene {
	return &LogScene{
		logger: log.With().Str("component", "scene").Str("participant_id", participantID).Logger(),
	}
}

func (s *LogScene) SpawnAvatar(a models.Avatar) {
	s.logger.Debug().
		Str("avatar_id", a.ParticipantID).
		Str("mode", string(a.Mode)).
		Float64("x", a.Position.X).
		Float64("y", a.Position.Y).
		Msg("spawn avatar")
}

func (s *LogScene) RemoveAvatar(participantID string) {
	s.logger.Debug().Str("avatar_id", participantID).Msg("remove avatar")
}

func (s *LogScene) SetAvatarActive(participantID string, active bool) {
	s.logger.Debug().Str("avatar_id", participantID).Bool("active", active).Msg("set avatar active")
}

func (s *LogScene) SpawnItem(it models.Item) {
	pos := it.Position()
	s.logger.Debug().
		Int("item_id", it.ID).
		Int("item_type", it.Type).
		Float64("x", pos.X).
		Float64("y", pos.Y).
		Msg("spawn item")
}

func (s *LogScene) RemoveItem(itemID int) {
	s.logger.Debug().Int("item_id", itemID).Msg("remove item")
}

func (s *LogScene) InitUI() {
	s.logger.Info().Msg("battle UI ready")
}

func (s *LogScene) AddPlayerEntry(participantID string) {
	s.logger.Info().Str("player", participantID).Msg("player joined the battle")
}

func (s *LogScene) RemovePlayerEntry(participantID string) {
	s.logger.Info().Str("player", participantID).Msg("player left the battle")
}

func (s *LogScene) RefreshUI() {}

func (s *LogScene) ShowMenu() {
	s.logger.Info().Msg("back to menu")
}
