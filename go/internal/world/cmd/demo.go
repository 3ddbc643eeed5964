package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ballbattle/go/internal/config"
	"github.com/mcdev12/ballbattle/go/internal/room/memroom"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/mcdev12/ballbattle/go/internal/world/gateway"
	"github.com/mcdev12/ballbattle/go/internal/world/scene"
)

const (
	demoTick         = time.Second
	demoHandOffAfter = 10 // ticks
)

// runDemo hosts a room in process. Players eat random items, and the first
// authority drops out after a while so the hand-off can be watched on the
// spectator feed, which follows the last player to join.
func runDemo(ctx context.Context, cfg *config.Config, feed *gateway.Feed, players int) error {
	hub := memroom.NewHub(cfg.Room.ID)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	spawns := authority.NewRandomPositions(cfg.ToController().Bounds, rng)

	var wg sync.WaitGroup
	rooms := make([]*memroom.Room, 0, players)
	for i := 0; i < players; i++ {
		id := fmt.Sprintf("player-%d", i+1)
		room, err := hub.Join(id, memroom.AtPosition(spawns.RandomPosition()))
		if err != nil {
			return err
		}

		var observer controller.Observer
		if i == players-1 {
			observer = feed
		}
		ctrl := controller.New(room, scene.NewLogScene(id), observer, cfg.ToController())
		if err := ctrl.Start(ctx); err != nil {
			return err
		}
		rooms = append(rooms, room)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctrl.Run(ctx, room.Notifications()); err != nil {
				log.Error().Err(err).Str("participant_id", id).Msg("world loop failed")
			}
		}()
	}

	ticker := time.NewTicker(demoTick)
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-ticker.C:
		}

		if tick == demoHandOffAfter && players > 1 {
			if err := hub.Drop(hub.AuthorityID()); err != nil {
				log.Warn().Err(err).Msg("demo hand-off failed")
			}
		}

		snap, ok := feed.Latest()
		if !ok || len(snap.Items) == 0 {
			continue
		}
		room := rooms[rng.Intn(len(rooms))]
		item := snap.Items[rng.Intn(len(snap.Items))]
		err := room.Publish(ctx, events.ConsumptionPayload{AvatarID: room.LocalID(), ItemID: item.ID})
		if err != nil {
			// Dropped players can no longer publish.
			log.Debug().Err(err).Str("participant_id", room.LocalID()).Msg("demo consumption skipped")
		}
	}
}
