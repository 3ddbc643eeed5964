package eventbus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/ballbattle/go/internal/world/events"
)

func TestDecodersCoverEveryKind(t *testing.T) {
	for _, kind := range events.Kinds() {
		_, ok := decoders[kind]
		assert.True(t, ok, "missing decoder for %s", kind)
	}
	assert.Len(t, decoders, len(events.Kinds()))
}

func TestBus_DispatchRoutesByKind(t *testing.T) {
	ctx := context.Background()
	bus := New()

	var got []events.Event
	for _, kind := range events.Kinds() {
		require.NoError(t, bus.Subscribe(kind, func(_ context.Context, ev events.Event) {
			got = append(got, ev)
		}))
	}

	bus.Dispatch(ctx, events.CustomEvent{
		ID:     "e1",
		Kind:   events.KindConsumption,
		Sender: "p1",
		Data:   json.RawMessage(`{"avatarId":"p1","itemId":7}`),
	})
	bus.Dispatch(ctx, events.CustomEvent{ID: "e2", Kind: events.KindGameOver})

	require.Len(t, got, 2)
	assert.Equal(t, events.ConsumptionPayload{AvatarID: "p1", ItemID: 7}, got[0].Payload)
	assert.Equal(t, "p1", got[0].Sender)
	assert.Equal(t, events.GameOverPayload{}, got[1].Payload)
}

func TestBus_DispatchDropsUnknownAndMalformed(t *testing.T) {
	ctx := context.Background()
	bus := New()

	calls := 0
	require.NoError(t, bus.Subscribe(events.KindBirth, func(context.Context, events.Event) { calls++ }))

	tests := []struct {
		name string
		raw  events.CustomEvent
	}{
		{"unknown kind", events.CustomEvent{Kind: "Teleport", Data: json.RawMessage(`{}`)}},
		{"malformed payload", events.CustomEvent{Kind: events.KindBirth, Data: json.RawMessage(`{"participantId":`)}},
		{"wrong field type", events.CustomEvent{Kind: events.KindBirth, Data: json.RawMessage(`{"participantId":12}`)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() { bus.Dispatch(ctx, tc.raw) })
		})
	}
	assert.Zero(t, calls)
}

func TestBus_DispatchWithoutHandlerIsNoop(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() {
		bus.Dispatch(context.Background(), events.CustomEvent{Kind: events.KindDefeat, Data: json.RawMessage(`{"loserAvatarId":"p2"}`)})
	})
}

func TestBus_SubscribeRejectsUnknownKind(t *testing.T) {
	err := New().Subscribe("Teleport", func(context.Context, events.Event) {})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecode_EmptyPayloadForBareKinds(t *testing.T) {
	ev, err := Decode(events.CustomEvent{Kind: events.KindSpawnRequest})
	require.NoError(t, err)
	assert.Equal(t, events.SpawnRequestPayload{}, ev.Payload)
}
