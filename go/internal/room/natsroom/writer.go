package natsroom

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
)

// WriteRoomProperties queues a partial property update. Writes are applied in
// order by a single writer; the change comes back to every participant,
// this one included, as a RoomPropertiesChanged notification.
func (r *Room) WriteRoomProperties(_ context.Context, update models.RoomProperties) error {
	changed, err := events.EncodeProperties(update)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	select {
	case r.writes <- changed:
		return nil
	default:
		return ErrWriteQueueFull
	}
}

func (r *Room) writeLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case changed := <-r.writes:
			for _, key := range sortedKeys(changed) {
				if err := r.writeKey(ctx, key, changed[key]); err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Str("key", key).Msg("room property write failed")
				}
			}
		}
	}
}

func (r *Room) writeKey(ctx context.Context, key string, value json.RawMessage) error {
	data := r.codec.encode(value)

	if !r.config.GuardedWrites {
		if _, err := r.props.Put(ctx, key, data); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		return nil
	}

	r.mu.Lock()
	rev, seen := r.revisions[key]
	r.mu.Unlock()

	var (
		newRev uint64
		err    error
	)
	if seen {
		newRev, err = r.props.Update(ctx, key, data, rev)
	} else {
		newRev, err = r.props.Create(ctx, key, data)
	}
	if err != nil {
		return fmt.Errorf("%w: %s at revision %d: %v", ErrPropertyWriteConflict, key, rev, err)
	}
	r.recordRevision(key, newRev)
	return nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
