package memroom

import (
	"context"
	"fmt"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
)

var _ controller.Room = (*Room)(nil)

// Room is one participant's connection to a Hub
type Room struct {
	hub      *Hub
	id       string
	inbox    chan events.Notification
	position models.Vec2
	created  bool
	left     bool // guarded by hub.mu
}

func (r *Room) ID() string {
	return r.hub.id
}

func (r *Room) LocalID() string {
	return r.id
}

// Notifications delivers everything broadcast in the room. It is closed once
// the participant leaves or is dropped.
func (r *Room) Notifications() <-chan events.Notification {
	return r.inbox
}

func (r *Room) Participant(id string) (models.Participant, bool) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	return r.hub.participant(id, r.id)
}

func (r *Room) Participants() []models.Participant {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	out := make([]models.Participant, 0, len(r.hub.members))
	for _, m := range r.hub.members {
		p, _ := r.hub.participant(m.id, r.id)
		out = append(out, p)
	}
	return out
}

func (r *Room) IsAuthority() bool {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	return r.hub.authorityID == r.id
}

func (r *Room) Created() bool {
	return r.created
}

func (r *Room) Properties(_ context.Context) (events.RoomPropertiesChanged, error) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	if r.left {
		return events.RoomPropertiesChanged{}, fmt.Errorf("read properties: %w", ErrNotJoined)
	}
	return events.RoomPropertiesChanged{Changed: r.hub.copyProps()}, nil
}

// WriteRoomProperties merges update into the shared properties and notifies
// every member of the changed keys.
func (r *Room) WriteRoomProperties(_ context.Context, update models.RoomProperties) error {
	changed, err := events.EncodeProperties(update)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	if r.left {
		return fmt.Errorf("write properties: %w", ErrNotJoined)
	}
	for k, v := range changed {
		r.hub.props[k] = v
	}
	r.hub.broadcast(events.RoomPropertiesChanged{Changed: changed})
	return nil
}

// Publish sends a custom event to every member, the sender included
func (r *Room) Publish(_ context.Context, payload events.Payload) error {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	return r.publishLocked(payload)
}

func (r *Room) publishLocked(payload events.Payload) error {
	if r.left {
		return fmt.Errorf("publish %s: %w", payload.Kind(), ErrNotJoined)
	}
	ev, err := events.NewCustomEvent(r.id, payload, r.hub.clock.Now())
	if err != nil {
		return err
	}
	r.hub.broadcast(ev)
	return nil
}

// LeaveRoom announces the local departure and leaves
func (r *Room) LeaveRoom(_ context.Context) error {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	if r.left {
		return nil
	}
	if err := r.publishLocked(events.DeparturePayload{ParticipantID: r.id}); err != nil {
		return err
	}
	return r.hub.remove(r.id)
}
