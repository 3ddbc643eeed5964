package natsroom

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
)

func (r *Room) handleEventMsg(msg *nats.Msg) {
	var ev events.CustomEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Warn().
			Err(err).
			Str("subject", msg.Subject).
			Str("event_id", msg.Header.Get("Event-ID")).
			Msg("dropping malformed room event")
		return
	}
	r.deliver(ev)
}

func (r *Room) watchProperties(ctx context.Context, w jetstream.KeyWatcher) {
	defer r.wg.Done()
	defer stopWatcher(w)

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-w.Updates():
			if !ok {
				return
			}
			if entry == nil || entry.Operation() != jetstream.KeyValuePut {
				continue
			}
			value, ok := r.storeEntry(entry)
			if !ok {
				continue
			}
			r.deliver(events.RoomPropertiesChanged{
				Changed: map[string]json.RawMessage{entry.Key(): value},
			})
		}
	}
}

func (r *Room) watchPresence(ctx context.Context, w jetstream.KeyWatcher) {
	defer r.wg.Done()
	defer stopWatcher(w)

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-w.Updates():
			if !ok {
				return
			}
			if entry == nil {
				continue
			}
			r.applyPresence(entry)
		}
	}
}

func (r *Room) applyPresence(entry jetstream.KeyValueEntry) {
	if entry.Key() == authorityKey {
		if entry.Operation() == jetstream.KeyValuePut {
			r.setAuthority(string(entry.Value()), entry.Revision())
		}
		return
	}

	id, ok := participantFromKey(entry.Key())
	if !ok {
		return
	}

	r.mu.Lock()
	_, known := r.participants[id]
	switch entry.Operation() {
	case jetstream.KeyValuePut:
		r.participants[id] = decodePresence(entry.Value()).Position
	default:
		delete(r.participants, id)
	}
	r.mu.Unlock()

	if known && entry.Operation() != jetstream.KeyValuePut {
		r.deliver(events.ParticipantLeft{ParticipantID: id})
	}
}

// setAuthority records the lease holder and notifies on change
func (r *Room) setAuthority(id string, rev uint64) {
	r.mu.Lock()
	changed := r.authorityID != id
	r.authorityID = id
	r.authorityRev = rev
	r.mu.Unlock()

	if changed {
		log.Info().
			Str("room_id", r.config.RoomID).
			Str("authority", id).
			Msg("room authority switched")
		r.deliver(events.AuthoritySwitched{NewAuthorityID: id})
	}
}

// heartbeat keeps presence and the authority lease alive and detects
// participants whose presence expired silently.
func (r *Room) heartbeat(ctx context.Context) {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := r.beat(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Str("room_id", r.config.RoomID).Msg("heartbeat failed")
			}
		}
	}
}

func (r *Room) beat(ctx context.Context) error {
	if err := r.putPresence(ctx); err != nil {
		return err
	}

	// Authority first so a hand-off is seen before the departure it causes.
	if err := r.claimAuthority(ctx); err != nil {
		return err
	}

	keys, err := r.presenceKeys(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	joined, left := diffPresence(r.participants, keys)
	r.mu.Unlock()

	positions := make(map[string]models.Vec2, len(joined))
	for _, id := range joined {
		pos, err := r.presencePosition(ctx, presenceKey(id))
		if err != nil {
			// Expired between listing and reading; the next beat settles it.
			continue
		}
		positions[id] = pos
	}

	r.mu.Lock()
	for id, pos := range positions {
		r.participants[id] = pos
	}
	for _, id := range left {
		delete(r.participants, id)
	}
	r.mu.Unlock()

	for _, id := range left {
		log.Info().Str("room_id", r.config.RoomID).Str("participant_id", id).Msg("participant presence expired")
		r.deliver(events.ParticipantLeft{ParticipantID: id})
	}
	return nil
}

// claimAuthority renews the lease if held, or takes it if nobody holds it
func (r *Room) claimAuthority(ctx context.Context) error {
	self := r.config.ParticipantID
	value := []byte(self)

	r.mu.Lock()
	holding := r.authorityID == self
	rev := r.authorityRev
	r.mu.Unlock()

	if holding {
		newRev, err := r.presence.Update(ctx, authorityKey, value, rev)
		if err == nil {
			r.setAuthority(self, newRev)
			return nil
		}
		log.Warn().Err(err).Msg("authority lease renewal failed")
	}

	entry, err := r.presence.Get(ctx, authorityKey)
	switch {
	case err == nil:
		r.setAuthority(string(entry.Value()), entry.Revision())
		return nil
	case !errors.Is(err, jetstream.ErrKeyNotFound):
		return err
	}

	newRev, err := r.presence.Create(ctx, authorityKey, value)
	if errors.Is(err, jetstream.ErrKeyExists) {
		// Lost the race; the watcher reports the winner.
		return nil
	}
	if err != nil {
		return err
	}
	r.setAuthority(self, newRev)
	return nil
}

func stopWatcher(w jetstream.KeyWatcher) {
	if err := w.Stop(); err != nil {
		log.Debug().Err(err).Msg("stop key watcher")
	}
}
