package models

// ControlMode defines who drives an avatar.
type ControlMode string

const (
	ControlModeLocallyDriven      ControlMode = "LOCALLY_DRIVEN"
	ControlModeRemotelyReplicated ControlMode = "REMOTELY_REPLICATED"
)

// Avatar is the in-world body of a participant. Its identifier is the owning
// participant's identifier.
type Avatar struct {
	ParticipantID string      `json:"participant_id"`
	Position      Vec2        `json:"position"`
	Alive         bool        `json:"alive"`
	Mode          ControlMode `json:"mode"`
	Consumed      int         `json:"consumed"`
}

// NewAvatar creates a live avatar for p. The local participant's avatar is
// locally driven, everyone else's is replicated.
func NewAvatar(p Participant) *Avatar {
	mode := ControlModeRemotelyReplicated
	if p.IsLocal {
		mode = ControlModeLocallyDriven
	}
	return &Avatar{
		ParticipantID: p.ID,
		Position:      p.Position,
		Alive:         true,
		Mode:          mode,
	}
}

// Consume records that the avatar ate an item.
func (a *Avatar) Consume() {
	a.Consumed++
}

// Deactivate soft-deletes the avatar after a defeat.
func (a *Avatar) Deactivate() {
	a.Alive = false
}

// Reactivate brings a defeated avatar back and resets its consume state.
func (a *Avatar) Reactivate() {
	a.Alive = true
	a.Consumed = 0
}
