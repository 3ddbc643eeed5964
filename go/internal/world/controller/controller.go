package controller

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/eventbus"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/mcdev12/ballbattle/go/internal/world/reconciler"
	"github.com/mcdev12/ballbattle/go/internal/world/registry"
	"github.com/rs/zerolog/log"
)

const leaveTimeout = 10 * time.Second

// Controller wires room notifications to the registry, the reconciler and,
// while the local participant holds it, the room authority. All methods must
// be called from the single world loop goroutine.
type Controller struct {
	room     Room
	scene    Scene
	observer Observer
	config   Config
	clock    clockwork.Clock
	rng      *rand.Rand

	bus        *eventbus.Bus
	registry   *registry.Registry
	reconciler *reconciler.Reconciler
	positions  authority.PositionSource

	state       State
	isAuthority bool
	authority   *authority.Authority // nil unless isAuthority
	itemsLoaded bool

	leaveDone chan error
}

// New creates a controller for room. observer may be nil.
func New(room Room, scene Scene, observer Observer, config Config) *Controller {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reg := registry.New()

	c := &Controller{
		room:       room,
		scene:      scene,
		observer:   observer,
		config:     config,
		clock:      clockwork.NewRealClock(),
		rng:        rng,
		bus:        eventbus.New(),
		registry:   reg,
		reconciler: reconciler.New(reg),
		positions:  authority.NewRandomPositions(config.Bounds, rng),
		state:      StateJoining,
		leaveDone:  make(chan error, 1),
	}

	for kind, h := range c.handlers() {
		if err := c.bus.Subscribe(kind, h); err != nil {
			panic(fmt.Sprintf("controller: %v", err))
		}
	}
	return c
}

// handlers is the fixed event-to-action table
func (c *Controller) handlers() map[events.Kind]eventbus.Handler {
	return map[events.Kind]eventbus.Handler{
		events.KindBirth:        c.onBirth,
		events.KindConsumption:  c.onConsumption,
		events.KindDefeat:       c.onDefeat,
		events.KindRebirth:      c.onRebirth,
		events.KindDeparture:    c.onDeparture,
		events.KindSpawnRequest: c.onSpawnRequest,
		events.KindGameOver:     c.onGameOver,
	}
}

// Start takes up authority if the room handed it to us at join time and
// announces the local participant's birth.
func (c *Controller) Start(ctx context.Context) error {
	log.Info().
		Str("room_id", c.room.ID()).
		Str("participant_id", c.room.LocalID()).
		Bool("authority", c.room.IsAuthority()).
		Bool("created", c.room.Created()).
		Msg("starting world controller")

	if c.room.IsAuthority() {
		if c.room.Created() {
			if err := c.initAuthority(ctx); err != nil {
				return err
			}
		} else {
			c.loadRoomItems(ctx)
			c.promote()
		}
	}

	if err := c.room.Publish(ctx, events.BirthPayload{ParticipantID: c.room.LocalID()}); err != nil {
		return fmt.Errorf("publish birth: %w", err)
	}
	c.notifyObserver()
	return nil
}

// Run processes notifications until ctx is done, inbox closes, or the room has
// been left after a game over.
func (c *Controller) Run(ctx context.Context, inbox <-chan events.Notification) error {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("participant_id", c.room.LocalID()).Msg("world loop shutting down")
			return nil
		case n, ok := <-inbox:
			if !ok {
				if c.state == StateEnded {
					// Still waiting for the leave to complete.
					inbox = nil
					continue
				}
				log.Info().Str("participant_id", c.room.LocalID()).Msg("room notifications closed")
				return nil
			}
			c.Handle(ctx, n)
		case err := <-c.leaveDone:
			c.onLeft(err)
			return nil
		}
	}
}

// Handle applies one notification to the local world
func (c *Controller) Handle(ctx context.Context, n events.Notification) {
	if c.state == StateEnded {
		log.Debug().Str("notification", fmt.Sprintf("%T", n)).Msg("session ended - ignoring notification")
		return
	}

	switch n := n.(type) {
	case events.AuthoritySwitched:
		c.onAuthoritySwitched(ctx, n)
	case events.CustomEvent:
		c.bus.Dispatch(ctx, n)
	case events.RoomPropertiesChanged:
		for _, it := range c.reconciler.OnPropertiesChanged(n) {
			c.scene.SpawnItem(it)
		}
	case events.ParticipantLeft:
		c.onParticipantLeft(ctx, n)
	default:
		log.Warn().Str("notification", fmt.Sprintf("%T", n)).Msg("unknown notification - ignoring")
	}

	c.notifyObserver()
}

// State returns the session state
func (c *Controller) State() State {
	return c.state
}

// IsAuthority reports whether the local participant currently holds authority
func (c *Controller) IsAuthority() bool {
	return c.isAuthority
}

// Snapshot copies the replicated world
func (c *Controller) Snapshot() models.WorldSnapshot {
	avatars := c.registry.AllAvatars()
	snap := models.WorldSnapshot{
		RoomID:      c.room.ID(),
		LocalID:     c.room.LocalID(),
		State:       string(c.state),
		IsAuthority: c.isAuthority,
		Avatars:     make([]models.Avatar, 0, len(avatars)),
		Items:       c.registry.AllItems(),
		TakenAt:     c.clock.Now(),
	}
	for _, a := range avatars {
		snap.Avatars = append(snap.Avatars, *a)
	}
	if c.authority != nil {
		next := c.authority.Next()
		snap.NextItemID = &next
	}
	if counter, ok := c.reconciler.ObservedCounter(); ok {
		snap.SharedCounter = &counter
	}
	return snap
}

func (c *Controller) notifyObserver() {
	if c.observer != nil {
		c.observer.Observe(c.Snapshot())
	}
}
