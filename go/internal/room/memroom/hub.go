package memroom

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/rs/zerolog/log"
)

const defaultInboxSize = 256

var (
	ErrAlreadyJoined = errors.New("participant already joined")
	ErrNotJoined     = errors.New("participant not in room")
)

// Option configures a Hub
type Option func(*Hub)

// WithClock sets the clock used to timestamp events
func WithClock(clock clockwork.Clock) Option {
	return func(h *Hub) { h.clock = clock }
}

// WithInboxSize sets the per-member notification buffer
func WithInboxSize(n int) Option {
	return func(h *Hub) { h.inboxSize = n }
}

// WithDuplicatePropertyDelivery delivers every property change twice
func WithDuplicatePropertyDelivery() Option {
	return func(h *Hub) { h.duplicate = true }
}

// Hub is an in-process room server. It keeps the shared properties, the
// ordered member list and the authority, and fans every notification out to
// all members including the sender.
type Hub struct {
	id        string
	clock     clockwork.Clock
	inboxSize int
	duplicate bool

	mu          sync.Mutex
	props       map[string]json.RawMessage
	members     []*Room
	authorityID string
	created     bool
}

// NewHub creates an empty room
func NewHub(id string, opts ...Option) *Hub {
	h := &Hub{
		id:        id,
		clock:     clockwork.NewRealClock(),
		inboxSize: defaultInboxSize,
		props:     make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// JoinOption configures one member at join time
type JoinOption func(*Room)

// AtPosition sets the member's position property
func AtPosition(pos models.Vec2) JoinOption {
	return func(r *Room) { r.position = pos }
}

// Join adds a participant. The first participant to join creates the room and
// holds authority.
func (h *Hub) Join(participantID string, opts ...JoinOption) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.indexOf(participantID) >= 0 {
		return nil, fmt.Errorf("join %s: %w", participantID, ErrAlreadyJoined)
	}

	r := &Room{
		hub:   h,
		id:    participantID,
		inbox: make(chan events.Notification, h.inboxSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !h.created {
		h.created = true
		r.created = true
	}
	if h.authorityID == "" {
		h.authorityID = participantID
	}
	h.members = append(h.members, r)

	log.Info().
		Str("room_id", h.id).
		Str("participant_id", participantID).
		Str("authority", h.authorityID).
		Float64("x", r.position.X).
		Float64("y", r.position.Y).
		Int("members", len(h.members)).
		Msg("participant joined room")
	return r, nil
}

// Drop disconnects a participant abruptly, without a departure event
func (h *Hub) Drop(participantID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remove(participantID)
}

// AuthorityID returns the current authority
func (h *Hub) AuthorityID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authorityID
}

// Properties returns a copy of the shared room properties
func (h *Hub) Properties() map[string]json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copyProps()
}

// remove must be called with mu held
func (h *Hub) remove(participantID string) error {
	idx := h.indexOf(participantID)
	if idx < 0 {
		return fmt.Errorf("remove %s: %w", participantID, ErrNotJoined)
	}
	gone := h.members[idx]
	h.members = append(h.members[:idx], h.members[idx+1:]...)
	gone.left = true
	close(gone.inbox)

	if h.authorityID == participantID {
		h.authorityID = ""
		if len(h.members) > 0 {
			h.authorityID = h.members[0].id
		}
		log.Info().
			Str("room_id", h.id).
			Str("previous", participantID).
			Str("authority", h.authorityID).
			Msg("room authority handed off")
		if h.authorityID != "" {
			h.broadcast(events.AuthoritySwitched{NewAuthorityID: h.authorityID})
		}
	}
	h.broadcast(events.ParticipantLeft{ParticipantID: participantID})

	log.Info().
		Str("room_id", h.id).
		Str("participant_id", participantID).
		Int("members", len(h.members)).
		Msg("participant left room")
	return nil
}

func (h *Hub) indexOf(participantID string) int {
	for i, m := range h.members {
		if m.id == participantID {
			return i
		}
	}
	return -1
}

func (h *Hub) participant(id, localID string) (models.Participant, bool) {
	idx := h.indexOf(id)
	if idx < 0 {
		return models.Participant{}, false
	}
	return models.Participant{
		ID:          id,
		IsLocal:     id == localID,
		IsAuthority: id == h.authorityID,
		Position:    h.members[idx].position,
	}, true
}

func (h *Hub) copyProps() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(h.props))
	for k, v := range h.props {
		out[k] = v
	}
	return out
}

// broadcast must be called with mu held. A member whose inbox is full misses
// the notification.
func (h *Hub) broadcast(n events.Notification) {
	copies := 1
	if _, ok := n.(events.RoomPropertiesChanged); ok && h.duplicate {
		copies = 2
	}
	for _, m := range h.members {
		for i := 0; i < copies; i++ {
			select {
			case m.inbox <- n:
			default:
				log.Warn().
					Str("room_id", h.id).
					Str("participant_id", m.id).
					Str("notification", fmt.Sprintf("%T", n)).
					Msg("member inbox full - dropping notification")
			}
		}
	}
}
