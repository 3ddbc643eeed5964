package controller

import (
	"context"
	"errors"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
)

// ErrMissingEntity marks an event that references an avatar, item or
// participant this client does not know. It is logged, never returned.
var ErrMissingEntity = errors.New("missing entity")

// State is the session state of the local client
type State string

const (
	StateJoining State = "JOINING"
	StateSpawned State = "SPAWNED"
	StatePlaying State = "PLAYING"
	StateEnded   State = "ENDED"
)

// Room is what the controller needs from the real-time room transport
type Room interface {
	ID() string
	LocalID() string
	Participant(id string) (models.Participant, bool)
	Participants() []models.Participant
	// IsAuthority reports whether the local participant holds authority at join time.
	IsAuthority() bool
	// Created reports whether the local participant created the room.
	Created() bool
	Properties(ctx context.Context) (events.RoomPropertiesChanged, error)
	WriteRoomProperties(ctx context.Context, update models.RoomProperties) error
	Publish(ctx context.Context, payload events.Payload) error
	LeaveRoom(ctx context.Context) error
}

// Scene is the rendering, UI and camera side of the client
type Scene interface {
	SpawnAvatar(a models.Avatar)
	RemoveAvatar(participantID string)
	SetAvatarActive(participantID string, active bool)
	SpawnItem(it models.Item)
	RemoveItem(itemID int)
	InitUI()
	AddPlayerEntry(participantID string)
	RemovePlayerEntry(participantID string)
	RefreshUI()
	ShowMenu()
}

// Observer receives a snapshot after every handled notification
type Observer interface {
	Observe(snapshot models.WorldSnapshot)
}

// Config holds world tuning for the controller and the authority it creates
type Config struct {
	Authority      authority.Config
	Bounds         authority.Bounds
	InitialItems   int
	SpawnBatchSize int
	MinItems       int
}
