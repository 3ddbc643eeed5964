package authority

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/registry"
	"github.com/rs/zerolog/log"
)

// PropertyWriter is the transport boundary the authority writes shared room
// state through.
type PropertyWriter interface {
	WriteRoomProperties(ctx context.Context, update models.RoomProperties) error
}

// PositionSource places newly spawned items.
type PositionSource interface {
	RandomPosition() models.Vec2
}

// Config bounds what a single authority decision may do
type Config struct {
	ItemTypes    int
	MaxBatchSize int
}

// Authority is the capability held only by the room's current authority. It
// allocates item identifiers and decides spawn batches.
type Authority struct {
	registry  *registry.Registry
	writer    PropertyWriter
	positions PositionSource
	config    Config
	rng       *rand.Rand

	next int
}

// New creates an authority capability. A nil rng is replaced by one seeded
// from the wall clock.
func New(reg *registry.Registry, writer PropertyWriter, positions PositionSource, config Config, rng *rand.Rand) *Authority {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if config.ItemTypes < 1 {
		config.ItemTypes = 1
	}
	return &Authority{
		registry:  reg,
		writer:    writer,
		positions: positions,
		config:    config,
		rng:       rng,
	}
}

// Init starts allocation from zero for a freshly created room
func (a *Authority) Init(ctx context.Context) error {
	a.next = 0
	counter := a.next
	if err := a.writer.WriteRoomProperties(ctx, models.RoomProperties{ItemAllocationCounter: &counter}); err != nil {
		return fmt.Errorf("write initial allocation counter: %w", err)
	}
	log.Info().Msg("room authority initialised")
	return nil
}

// Switch rebuilds the allocation counter on promotion from the promoted
// client's own item snapshot. Shared state is deliberately not consulted: it
// may be stale exactly when the previous authority vanished.
func (a *Authority) Switch(snapshot []models.Item) {
	next := 0
	for _, it := range snapshot {
		if it.ID+1 > next {
			next = it.ID + 1
		}
	}
	a.next = next

	log.Info().
		Int("snapshot_items", len(snapshot)).
		Int("next_item_id", next).
		Msg("took over room authority")
}

// Next returns the first identifier the next batch will use
func (a *Authority) Next() int {
	return a.next
}

// SpawnBatch allocates count identifiers from the counter, registers the new
// items locally and writes the full item list plus counter in one update.
// Identifiers already held locally are skipped. count is clamped to the
// configured maximum batch size.
func (a *Authority) SpawnBatch(ctx context.Context, count int) ([]models.Item, error) {
	if count <= 0 {
		return nil, nil
	}
	if a.config.MaxBatchSize > 0 && count > a.config.MaxBatchSize {
		count = a.config.MaxBatchSize
	}

	start := a.next
	batch := make([]models.Item, 0, count)
	for id := start; len(batch) < count; id++ {
		if a.registry.HasItem(id) {
			log.Warn().Int("item_id", id).Msg("allocation counter behind local items - skipping held id")
			continue
		}
		pos := a.positions.RandomPosition()
		batch = append(batch, models.Item{
			ID:   id,
			Type: a.rng.Intn(a.config.ItemTypes),
			X:    pos.X,
			Y:    pos.Y,
		})
	}

	for _, it := range batch {
		a.registry.PutItem(it)
	}
	counter := batch[len(batch)-1].ID + 1

	update := models.RoomProperties{
		ItemAllocationCounter: &counter,
		ItemList:              a.registry.AllItems(),
	}
	if err := a.writer.WriteRoomProperties(ctx, update); err != nil {
		// Nobody else saw these identifiers, so they can be handed out again.
		// Held ids were skipped above, so removal never drops an older item.
		for _, it := range batch {
			a.registry.RemoveItem(it.ID)
		}
		return nil, fmt.Errorf("write spawn batch [%d,%d]: %w", start, counter-1, err)
	}
	a.next = counter

	log.Info().
		Int("first_item_id", start).
		Int("count", count).
		Int("next_item_id", counter).
		Int("live_items", len(update.ItemList)).
		Msg("spawned item batch")

	return batch, nil
}
