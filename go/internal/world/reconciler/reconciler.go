package reconciler

import (
	"encoding/json"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/mcdev12/ballbattle/go/internal/world/registry"
	"github.com/rs/zerolog/log"
)

// Reconciler merges shared room property diffs into the registry. It only ever
// adds items: an item missing from a diff is unknown, not deleted.
type Reconciler struct {
	registry *registry.Registry

	observedCounter *int
}

// New creates a reconciler writing into reg
func New(reg *registry.Registry) *Reconciler {
	return &Reconciler{registry: reg}
}

// OnPropertiesChanged applies diff and returns the items it newly registered,
// in diff order.
func (r *Reconciler) OnPropertiesChanged(diff events.RoomPropertiesChanged) []models.Item {
	if raw, ok := diff.Changed[events.PropItemAllocationCounter]; ok {
		r.observeCounter(raw)
	}

	raw, ok := diff.Changed[events.PropItemList]
	if !ok {
		return nil
	}

	var items []models.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn().Err(err).Int("size", len(raw)).Msg("ignoring undecodable item list")
		return nil
	}

	var added []models.Item
	for _, it := range items {
		if r.registry.HasItem(it.ID) {
			continue
		}
		r.registry.PutItem(it)
		added = append(added, it)
	}

	log.Debug().
		Int("received", len(items)).
		Int("added", len(added)).
		Int("total", r.registry.ItemCount()).
		Msg("reconciled item list")

	return added
}

// ObservedCounter returns the last allocation counter seen in shared state.
// It is informational only; allocation never uses it.
func (r *Reconciler) ObservedCounter() (int, bool) {
	if r.observedCounter == nil {
		return 0, false
	}
	return *r.observedCounter, true
}

func (r *Reconciler) observeCounter(raw json.RawMessage) {
	var counter int
	if err := json.Unmarshal(raw, &counter); err != nil {
		log.Warn().Err(err).Msg("ignoring undecodable allocation counter")
		return
	}
	r.observedCounter = &counter
}
