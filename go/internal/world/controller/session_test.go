package controller_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/room/memroom"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/mcdev12/ballbattle/go/internal/world/scene"
)

type client struct {
	room *memroom.Room
	ctrl *controller.Controller
}

func join(t *testing.T, hub *memroom.Hub, id string, cfg controller.Config, opts ...memroom.JoinOption) *client {
	t.Helper()
	room, err := hub.Join(id, opts...)
	require.NoError(t, err)
	ctrl := controller.New(room, scene.NewLogScene(id), nil, cfg)
	require.NoError(t, ctrl.Start(context.Background()))
	return &client{room: room, ctrl: ctrl}
}

// pump handles queued notifications until the inbox is empty or closed
func (c *client) pump(ctx context.Context) {
	for {
		select {
		case n, ok := <-c.room.Notifications():
			if !ok {
				return
			}
			c.ctrl.Handle(ctx, n)
		default:
			return
		}
	}
}

func itemIDs(items []models.Item) []int {
	out := []int{}
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func avatarIDs(s models.WorldSnapshot) []string {
	out := []string{}
	for _, a := range s.Avatars {
		out = append(out, a.ParticipantID)
	}
	return out
}

func sessionConfig() controller.Config {
	return controller.Config{
		Authority:      authority.Config{ItemTypes: 4, MaxBatchSize: 10},
		Bounds:         authority.Bounds{MinX: -50, MaxX: 50, MinY: -50, MaxY: 50},
		InitialItems:   2,
		SpawnBatchSize: 4,
	}
}

func TestSession_AuthorityHandOffKeepsIdentifiersUnique(t *testing.T) {
	ctx := context.Background()
	hub := memroom.NewHub("arena", memroom.WithDuplicatePropertyDelivery())

	a := join(t, hub, "a", sessionConfig())
	require.True(t, a.ctrl.IsAuthority())
	a.pump(ctx)
	assert.Equal(t, []int{0, 1}, itemIDs(a.ctrl.Snapshot().Items))

	b := join(t, hub, "b", sessionConfig())
	require.False(t, b.ctrl.IsAuthority())
	a.pump(ctx)
	b.pump(ctx)

	assert.Equal(t, controller.StatePlaying, b.ctrl.State())
	assert.Equal(t, []int{0, 1}, itemIDs(b.ctrl.Snapshot().Items))
	assert.Equal(t, []string{"a", "b"}, avatarIDs(b.ctrl.Snapshot()))
	assert.Equal(t, []string{"a", "b"}, avatarIDs(a.ctrl.Snapshot()))

	require.NoError(t, b.room.Publish(ctx, events.SpawnRequestPayload{}))
	a.pump(ctx)
	b.pump(ctx)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, itemIDs(b.ctrl.Snapshot().Items))

	require.NoError(t, a.room.Publish(ctx, events.ConsumptionPayload{AvatarID: "a", ItemID: 3}))
	require.NoError(t, b.room.Publish(ctx, events.ConsumptionPayload{AvatarID: "b", ItemID: 4}))
	a.pump(ctx)
	b.pump(ctx)
	assert.Equal(t, []int{0, 1, 2, 5}, itemIDs(b.ctrl.Snapshot().Items))

	// a vanishes without a departure of its own.
	require.NoError(t, hub.Drop("a"))
	b.pump(ctx)

	require.True(t, b.ctrl.IsAuthority())
	snap := b.ctrl.Snapshot()
	require.NotNil(t, snap.NextItemID)
	assert.Equal(t, 6, *snap.NextItemID)
	assert.Equal(t, []string{"b"}, avatarIDs(snap))

	require.NoError(t, b.room.Publish(ctx, events.SpawnRequestPayload{}))
	b.pump(ctx)
	assert.Equal(t, []int{0, 1, 2, 5, 6, 7, 8, 9}, itemIDs(b.ctrl.Snapshot().Items))
}

func TestSession_GameOverEndsEveryClient(t *testing.T) {
	ctx := context.Background()
	hub := memroom.NewHub("arena")

	a := join(t, hub, "a", sessionConfig())
	b := join(t, hub, "b", sessionConfig())
	a.pump(ctx)
	b.pump(ctx)

	require.NoError(t, a.room.Publish(ctx, events.GameOverPayload{}))

	done := make(chan error, 2)
	go func() { done <- a.ctrl.Run(ctx, a.room.Notifications()) }()
	go func() { done <- b.ctrl.Run(ctx, b.room.Notifications()) }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, controller.StateEnded, a.ctrl.State())
	assert.Equal(t, controller.StateEnded, b.ctrl.State())
	assert.Empty(t, hub.AuthorityID())
}

func TestSession_AvatarsStartAtJoinPositions(t *testing.T) {
	ctx := context.Background()
	hub := memroom.NewHub("arena")

	a := join(t, hub, "a", sessionConfig(), memroom.AtPosition(models.Vec2{X: 10, Y: 20}))
	b := join(t, hub, "b", sessionConfig(), memroom.AtPosition(models.Vec2{X: -5, Y: 0}))
	a.pump(ctx)
	b.pump(ctx)

	for _, c := range []*client{a, b} {
		positions := map[string]models.Vec2{}
		for _, av := range c.ctrl.Snapshot().Avatars {
			positions[av.ParticipantID] = av.Position
		}
		assert.Equal(t, map[string]models.Vec2{
			"a": {X: 10, Y: 20},
			"b": {X: -5, Y: 0},
		}, positions)
	}
}
