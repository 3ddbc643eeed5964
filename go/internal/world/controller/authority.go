package controller

import (
	"context"
	"fmt"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/rs/zerolog/log"
)

func (c *Controller) newAuthority() *authority.Authority {
	return authority.New(c.registry, c.room, c.positions, c.config.Authority, c.rng)
}

// initAuthority sets up allocation for a room this client created and
// populates it with the initial items.
func (c *Controller) initAuthority(ctx context.Context) error {
	a := c.newAuthority()
	if err := a.Init(ctx); err != nil {
		return fmt.Errorf("init room authority: %w", err)
	}
	c.authority = a
	c.isAuthority = true
	c.itemsLoaded = true

	for remaining := c.config.InitialItems; remaining > 0; {
		batch := c.spawn(ctx, remaining)
		if len(batch) == 0 {
			break
		}
		remaining -= len(batch)
	}
	return nil
}

// promote takes over authority from the local registry view
func (c *Controller) promote() {
	a := c.newAuthority()
	a.Switch(c.registry.AllItems())
	c.authority = a
	c.isAuthority = true
}

func (c *Controller) demote(newAuthorityID string) {
	log.Info().
		Str("participant_id", c.room.LocalID()).
		Str("new_authority", newAuthorityID).
		Msg("lost room authority")
	c.authority = nil
	c.isAuthority = false
}

func (c *Controller) onAuthoritySwitched(ctx context.Context, n events.AuthoritySwitched) {
	if n.NewAuthorityID != c.room.LocalID() {
		if c.isAuthority {
			c.demote(n.NewAuthorityID)
		}
		return
	}
	if c.isAuthority {
		log.Debug().Msg("already the room authority")
		return
	}
	log.Info().Str("participant_id", c.room.LocalID()).Msg("promoted to room authority")
	if !c.itemsLoaded {
		// The switch can overtake our own birth; allocate past the room's items.
		c.loadRoomItems(ctx)
	}
	c.promote()
}

// spawn asks the authority for up to n items and hands them to the scene
func (c *Controller) spawn(ctx context.Context, n int) []models.Item {
	batch, err := c.authority.SpawnBatch(ctx, n)
	if err != nil {
		log.Warn().Err(err).Int("count", n).Msg("spawn batch failed")
		return nil
	}
	for _, it := range batch {
		c.scene.SpawnItem(it)
	}
	return batch
}

// replenish tops the world back up to the configured minimum item count
func (c *Controller) replenish(ctx context.Context) {
	if !c.isAuthority || c.config.MinItems <= 0 {
		return
	}
	deficit := c.config.MinItems - c.registry.ItemCount()
	if deficit <= 0 {
		return
	}
	c.spawn(ctx, deficit)
}
