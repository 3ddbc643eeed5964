package controller

import (
	"context"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/rs/zerolog/log"
)

func (c *Controller) onBirth(ctx context.Context, ev events.Event) {
	p := ev.Payload.(events.BirthPayload)

	if !c.itemsLoaded {
		c.loadRoomItems(ctx)
	}

	participant, ok := c.room.Participant(p.ParticipantID)
	if !ok {
		// Presence can lag behind the event stream.
		log.Debug().
			Str("event_id", ev.ID).
			Str("participant_id", p.ParticipantID).
			Msg("birth of participant not yet in room - creating avatar from event")
		participant = models.Participant{
			ID:      p.ParticipantID,
			IsLocal: p.ParticipantID == c.room.LocalID(),
		}
	}

	if !participant.IsLocal {
		// Another client joined the battle.
		if c.addAvatar(participant) {
			c.scene.AddPlayerEntry(participant.ID)
		}
		return
	}

	if c.state != StateJoining {
		log.Debug().Str("participant_id", participant.ID).Msg("duplicate local birth - ignoring")
		return
	}
	c.state = StateSpawned
	c.scene.InitUI()
	for _, other := range c.room.Participants() {
		c.addAvatar(other)
	}
	c.state = StatePlaying

	log.Info().
		Str("participant_id", participant.ID).
		Int("avatars", len(c.registry.AllAvatars())).
		Int("items", c.registry.ItemCount()).
		Msg("local avatar born - playing")
}

func (c *Controller) onConsumption(ctx context.Context, ev events.Event) {
	p := ev.Payload.(events.ConsumptionPayload)

	if avatar, ok := c.registry.GetAvatar(p.AvatarID); ok {
		avatar.Consume()
	} else {
		missingEntity(ev, "avatar", p.AvatarID)
	}

	// The item goes regardless of the avatar so every client converges.
	if c.registry.RemoveItem(p.ItemID) {
		c.scene.RemoveItem(p.ItemID)
	} else {
		log.Debug().Int("item_id", p.ItemID).Msg("consumed item already gone")
	}
	c.scene.RefreshUI()

	c.replenish(ctx)
}

func (c *Controller) onDefeat(_ context.Context, ev events.Event) {
	p := ev.Payload.(events.DefeatPayload)

	avatar, ok := c.registry.GetAvatar(p.LoserAvatarID)
	if !ok {
		missingEntity(ev, "avatar", p.LoserAvatarID)
		return
	}
	avatar.Deactivate()
	c.scene.SetAvatarActive(avatar.ParticipantID, false)
	c.scene.RefreshUI()
}

func (c *Controller) onRebirth(_ context.Context, ev events.Event) {
	p := ev.Payload.(events.RebirthPayload)

	avatar, ok := c.registry.GetAvatar(p.ParticipantID)
	if !ok {
		missingEntity(ev, "avatar", p.ParticipantID)
		return
	}
	avatar.Reactivate()
	c.scene.SetAvatarActive(avatar.ParticipantID, true)
	c.scene.RefreshUI()
}

func (c *Controller) onDeparture(_ context.Context, ev events.Event) {
	p := ev.Payload.(events.DeparturePayload)

	if !c.registry.RemoveAvatar(p.ParticipantID) {
		log.Debug().Str("participant_id", p.ParticipantID).Msg("departed avatar already gone")
		return
	}
	c.scene.RemoveAvatar(p.ParticipantID)
	c.scene.RemovePlayerEntry(p.ParticipantID)
}

func (c *Controller) onSpawnRequest(ctx context.Context, ev events.Event) {
	if !c.isAuthority {
		log.Debug().Str("sender", ev.Sender).Msg("not the room authority - ignoring spawn request")
		return
	}
	c.spawn(ctx, c.config.SpawnBatchSize)
}

func (c *Controller) onGameOver(ctx context.Context, ev events.Event) {
	log.Info().Str("sender", ev.Sender).Msg("game over - leaving room")

	c.state = StateEnded
	c.isAuthority = false
	c.authority = nil

	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
	go func() {
		defer cancel()
		c.leaveDone <- c.room.LeaveRoom(leaveCtx)
	}()
}

func (c *Controller) onLeft(err error) {
	if err != nil {
		log.Warn().Err(err).Str("room_id", c.room.ID()).Msg("leaving room failed")
	} else {
		log.Info().Str("room_id", c.room.ID()).Msg("left room")
	}
	c.scene.ShowMenu()
}

func (c *Controller) onParticipantLeft(ctx context.Context, n events.ParticipantLeft) {
	if !c.isAuthority {
		return
	}
	// The authority announces departures the leaver could not announce itself.
	if err := c.room.Publish(ctx, events.DeparturePayload{ParticipantID: n.ParticipantID}); err != nil {
		log.Warn().Err(err).Str("participant_id", n.ParticipantID).Msg("failed to announce departure")
	}
}

// addAvatar creates the avatar of p unless it already exists
func (c *Controller) addAvatar(p models.Participant) bool {
	if _, ok := c.registry.GetAvatar(p.ID); ok {
		return false
	}
	avatar := models.NewAvatar(p)
	c.registry.PutAvatar(avatar)
	c.scene.SpawnAvatar(*avatar)
	return true
}

// loadRoomItems merges the room's current item list, if any, into the registry
func (c *Controller) loadRoomItems(ctx context.Context) {
	props, err := c.room.Properties(ctx)
	if err != nil {
		log.Warn().Err(err).Str("room_id", c.room.ID()).Msg("failed to read room properties")
		return
	}
	for _, it := range c.reconciler.OnPropertiesChanged(props) {
		c.scene.SpawnItem(it)
	}
	c.itemsLoaded = true
}

func missingEntity(ev events.Event, entity, id string) {
	log.Warn().
		Err(ErrMissingEntity).
		Str("event_id", ev.ID).
		Str("event_kind", string(ev.Kind)).
		Str("entity", entity).
		Str("id", id).
		Msg("event references unknown entity - ignoring")
}
