package events

// Kind is the closed set of custom event kinds exchanged inside a room.
type Kind string

const (
	KindBirth        Kind = "Birth"
	KindConsumption  Kind = "Consumption"
	KindDefeat       Kind = "Defeat"
	KindRebirth      Kind = "Rebirth"
	KindDeparture    Kind = "Departure"
	KindSpawnRequest Kind = "SpawnRequest"
	KindGameOver     Kind = "GameOver"
)

// Kinds lists every known event kind.
func Kinds() []Kind {
	return []Kind{
		KindBirth,
		KindConsumption,
		KindDefeat,
		KindRebirth,
		KindDeparture,
		KindSpawnRequest,
		KindGameOver,
	}
}

// Payload is implemented by every typed event payload.
type Payload interface {
	Kind() Kind
}

// BirthPayload announces that a participant's avatar entered the battle
type BirthPayload struct {
	ParticipantID string `json:"participantId"`
}

// ConsumptionPayload announces that an avatar ate an item
type ConsumptionPayload struct {
	AvatarID string `json:"avatarId"`
	ItemID   int    `json:"itemId"`
}

// DefeatPayload announces that an avatar was defeated
type DefeatPayload struct {
	LoserAvatarID string `json:"loserAvatarId"`
}

// RebirthPayload announces that a defeated avatar came back
type RebirthPayload struct {
	ParticipantID string `json:"participantId"`
}

// DeparturePayload announces that a participant left the battle
type DeparturePayload struct {
	ParticipantID string `json:"participantId"`
}

// SpawnRequestPayload asks the authority for a new item batch
type SpawnRequestPayload struct{}

// GameOverPayload ends the battle for every participant
type GameOverPayload struct{}

func (BirthPayload) Kind() Kind        { return KindBirth }
func (ConsumptionPayload) Kind() Kind  { return KindConsumption }
func (DefeatPayload) Kind() Kind       { return KindDefeat }
func (RebirthPayload) Kind() Kind      { return KindRebirth }
func (DeparturePayload) Kind() Kind    { return KindDeparture }
func (SpawnRequestPayload) Kind() Kind { return KindSpawnRequest }
func (GameOverPayload) Kind() Kind     { return KindGameOver }
