package natsroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
)

var (
	ErrRoomClosed            = errors.New("room closed")
	ErrWriteQueueFull        = errors.New("property write queue full")
	ErrPropertyWriteConflict = errors.New("property write conflict")
)

var _ controller.Room = (*Room)(nil)

// Room connects one participant to a room hosted on NATS. Custom events travel
// over a core NATS subject, shared properties live in a JetStream key-value
// bucket and presence plus the authority lease live in a second bucket whose
// entries expire after PresenceTTL.
type Room struct {
	config Config
	clock  clockwork.Clock
	codec  *codec

	nc       *nats.Conn
	js       jetstream.JetStream
	props    jetstream.KeyValue
	presence jetstream.KeyValue
	sub      *nats.Subscription

	inbox  chan events.Notification
	writes chan map[string]json.RawMessage

	position models.Vec2

	mu           sync.Mutex
	participants map[string]models.Vec2 // id -> position property
	propCache    map[string]json.RawMessage
	revisions    map[string]uint64
	authorityID  string
	authorityRev uint64
	created      bool
	joinedAsAuth bool
	closed       bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Room
type Option func(*Room)

// WithClock sets the clock driving heartbeats and event timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(r *Room) { r.clock = clock }
}

// WithPosition sets the local participant's position property
func WithPosition(pos models.Vec2) Option {
	return func(r *Room) { r.position = pos }
}

// Connect joins the room described by cfg. The first participant to claim the
// authority lease holds authority; the room counts as created by this
// participant when it has no allocation counter yet.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Room, error) {
	if cfg.RoomID == "" || cfg.ParticipantID == "" {
		return nil, fmt.Errorf("room id and participant id are required")
	}

	codec, err := newCodec(cfg.CompressThreshold)
	if err != nil {
		return nil, err
	}

	r := &Room{
		config:       cfg,
		clock:        clockwork.NewRealClock(),
		codec:        codec,
		inbox:        make(chan events.Notification, cfg.InboxSize),
		writes:       make(chan map[string]json.RawMessage, cfg.WriteQueueSize),
		participants: make(map[string]models.Vec2),
		propCache:    make(map[string]json.RawMessage),
		revisions:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}

	natsOpts := []nats.Option{
		nats.Name(fmt.Sprintf("ballbattle-%s-%s", cfg.RoomID, cfg.ParticipantID)),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	r.nc, err = nats.Connect(cfg.URL, natsOpts...)
	if err != nil {
		codec.close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	if err := r.setup(ctx); err != nil {
		r.nc.Close()
		codec.close()
		return nil, err
	}

	log.Info().
		Str("room_id", cfg.RoomID).
		Str("participant_id", cfg.ParticipantID).
		Bool("created", r.created).
		Str("authority", r.authorityID).
		Int("participants", len(r.participants)).
		Msg("joined room")

	return r, nil
}

func (r *Room) setup(ctx context.Context) error {
	var err error
	r.js, err = jetstream.New(r.nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	r.props, err = r.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      r.config.propsBucket(),
		Description: "Shared room properties",
		History:     1,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure properties bucket: %w", err)
	}

	r.presence, err = r.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      r.config.presenceBucket(),
		Description: "Room presence and authority lease",
		History:     1,
		TTL:         r.config.PresenceTTL,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure presence bucket: %w", err)
	}

	if err := r.loadProperties(ctx); err != nil {
		return err
	}
	_, hasCounter := r.propCache[events.PropItemAllocationCounter]
	r.created = !hasCounter

	if err := r.putPresence(ctx); err != nil {
		return err
	}
	if err := r.loadPresence(ctx); err != nil {
		return err
	}
	if err := r.claimAuthority(ctx); err != nil {
		return err
	}
	r.joinedAsAuth = r.authorityID == r.config.ParticipantID

	r.sub, err = r.nc.Subscribe(r.config.eventsSubject(), r.handleEventMsg)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.config.eventsSubject(), err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	propsWatcher, err := r.props.WatchAll(loopCtx, jetstream.UpdatesOnly())
	if err != nil {
		cancel()
		return fmt.Errorf("watch properties: %w", err)
	}
	presenceWatcher, err := r.presence.WatchAll(loopCtx, jetstream.UpdatesOnly())
	if err != nil {
		cancel()
		return fmt.Errorf("watch presence: %w", err)
	}

	r.wg.Add(4)
	go r.watchProperties(loopCtx, propsWatcher)
	go r.watchPresence(loopCtx, presenceWatcher)
	go r.heartbeat(loopCtx)
	go r.writeLoop(loopCtx)
	return nil
}

func (r *Room) loadProperties(ctx context.Context) error {
	lister, err := r.props.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("list property keys: %w", err)
	}
	defer lister.Stop()

	for key := range lister.Keys() {
		entry, err := r.props.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get property %s: %w", key, err)
		}
		r.storeEntry(entry)
	}
	return nil
}

func (r *Room) loadPresence(ctx context.Context) error {
	keys, err := r.presenceKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		id, ok := participantFromKey(key)
		if !ok {
			continue
		}
		pos, err := r.presencePosition(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.participants[id] = pos
		r.mu.Unlock()
	}
	return nil
}

// presencePosition reads the position property from a presence entry
func (r *Room) presencePosition(ctx context.Context, key string) (models.Vec2, error) {
	entry, err := r.presence.Get(ctx, key)
	if err != nil {
		return models.Vec2{}, err
	}
	return decodePresence(entry.Value()).Position, nil
}

func (r *Room) presenceKeys(ctx context.Context) ([]string, error) {
	lister, err := r.presence.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presence keys: %w", err)
	}
	defer lister.Stop()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

// storeEntry caches a property entry and returns its decoded value
func (r *Room) storeEntry(entry jetstream.KeyValueEntry) (json.RawMessage, bool) {
	value, err := r.codec.decode(entry.Value())
	if err != nil {
		log.Warn().Err(err).Str("key", entry.Key()).Msg("dropping undecodable property")
		return nil, false
	}
	r.mu.Lock()
	r.propCache[entry.Key()] = value
	r.mu.Unlock()
	r.recordRevision(entry.Key(), entry.Revision())
	return value, true
}

func (r *Room) recordRevision(key string, rev uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rev > r.revisions[key] {
		r.revisions[key] = rev
	}
}

func (r *Room) putPresence(ctx context.Context) error {
	value, err := json.Marshal(presenceRecord{Position: r.position, SeenAt: r.clock.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	if _, err := r.presence.Put(ctx, presenceKey(r.config.ParticipantID), value); err != nil {
		return fmt.Errorf("put presence: %w", err)
	}
	return nil
}

func (r *Room) ID() string {
	return r.config.RoomID
}

func (r *Room) LocalID() string {
	return r.config.ParticipantID
}

func (r *Room) Participant(id string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[id]; !ok {
		return models.Participant{}, false
	}
	return r.participantLocked(id), true
}

func (r *Room) Participants() []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.participantLocked(id))
	}
	return out
}

func (r *Room) participantLocked(id string) models.Participant {
	return models.Participant{
		ID:          id,
		IsLocal:     id == r.config.ParticipantID,
		IsAuthority: id == r.authorityID,
		Position:    r.participants[id],
	}
}

// IsAuthority reports whether this participant held the lease when it joined
func (r *Room) IsAuthority() bool {
	return r.joinedAsAuth
}

func (r *Room) Created() bool {
	return r.created
}

// Notifications delivers room notifications until the room is closed
func (r *Room) Notifications() <-chan events.Notification {
	return r.inbox
}

func (r *Room) Properties(_ context.Context) (events.RoomPropertiesChanged, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return events.RoomPropertiesChanged{}, ErrRoomClosed
	}
	changed := make(map[string]json.RawMessage, len(r.propCache))
	for k, v := range r.propCache {
		changed[k] = v
	}
	return events.RoomPropertiesChanged{Changed: changed}, nil
}

// Publish sends a custom event to every participant, this one included
func (r *Room) Publish(_ context.Context, payload events.Payload) error {
	ev, err := events.NewCustomEvent(r.config.ParticipantID, payload, r.clock.Now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = r.nc.PublishMsg(&nats.Msg{
		Subject: r.config.eventsSubject(),
		Data:    data,
		Header: nats.Header{
			"Event-Kind": []string{string(ev.Kind)},
			"Event-ID":   []string{ev.ID},
			"Sender":     []string{ev.Sender},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}

	log.Debug().
		Str("subject", r.config.eventsSubject()).
		Str("event_id", ev.ID).
		Str("event_kind", string(ev.Kind)).
		Msg("published event")
	return nil
}

// LeaveRoom announces the departure, gives up presence and authority and
// closes the connection.
func (r *Room) LeaveRoom(ctx context.Context) error {
	var errs []error
	if err := r.Publish(ctx, events.DeparturePayload{ParticipantID: r.config.ParticipantID}); err != nil {
		errs = append(errs, err)
	}
	if err := r.nc.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := r.releasePresence(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// releasePresence removes this participant's presence and, if held, the
// authority lease so the next heartbeat of another participant can claim it.
func (r *Room) releasePresence(ctx context.Context) error {
	var errs []error
	if err := r.presence.Delete(ctx, presenceKey(r.config.ParticipantID)); err != nil {
		errs = append(errs, fmt.Errorf("delete presence: %w", err))
	}

	r.mu.Lock()
	holding := r.authorityID == r.config.ParticipantID
	rev := r.authorityRev
	r.mu.Unlock()
	if holding {
		if err := r.presence.Delete(ctx, authorityKey, jetstream.LastRevision(rev)); err != nil {
			errs = append(errs, fmt.Errorf("release authority: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close stops all background work and closes the connection. The notification
// channel is closed once every producer has stopped.
func (r *Room) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		if r.sub != nil {
			if err := r.sub.Unsubscribe(); err != nil {
				log.Warn().Err(err).Msg("unsubscribe room events")
			}
		}
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
		if err := r.nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("drain NATS connection")
		}
		r.codec.close()

		close(r.inbox)

		log.Info().
			Str("room_id", r.config.RoomID).
			Str("participant_id", r.config.ParticipantID).
			Msg("room connection closed")
	})
	return nil
}

// deliver queues n for the controller. A full inbox drops n.
func (r *Room) deliver(n events.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.inbox <- n:
	default:
		log.Warn().
			Str("room_id", r.config.RoomID).
			Str("notification", fmt.Sprintf("%T", n)).
			Msg("room inbox full - dropping notification")
	}
}
