package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/ballbattle/go/internal/world/events"
	"github.com/rs/zerolog/log"
)

// ErrUnknownKind is returned when subscribing to a kind outside the closed set
var ErrUnknownKind = errors.New("unknown event kind")

// Handler handles one decoded event. Handlers run synchronously on the caller's
// goroutine and must not block.
type Handler func(ctx context.Context, ev events.Event)

type decoder func(data json.RawMessage) (events.Payload, error)

func decodeAs[T events.Payload](data json.RawMessage) (events.Payload, error) {
	var payload T
	if len(data) == 0 || string(data) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// decoders is the static kind -> payload table. Every entry of events.Kinds()
// must be present.
var decoders = map[events.Kind]decoder{
	events.KindBirth:        decodeAs[events.BirthPayload],
	events.KindConsumption:  decodeAs[events.ConsumptionPayload],
	events.KindDefeat:       decodeAs[events.DefeatPayload],
	events.KindRebirth:      decodeAs[events.RebirthPayload],
	events.KindDeparture:    decodeAs[events.DeparturePayload],
	events.KindSpawnRequest: decodeAs[events.SpawnRequestPayload],
	events.KindGameOver:     decodeAs[events.GameOverPayload],
}

// Bus decodes raw custom events and routes them to one handler per kind
type Bus struct {
	handlers map[events.Kind]Handler
}

// New creates an empty bus
func New() *Bus {
	return &Bus{
		handlers: make(map[events.Kind]Handler, len(decoders)),
	}
}

// Subscribe registers h for kind, replacing any previous handler
func (b *Bus) Subscribe(kind events.Kind, h Handler) error {
	if _, ok := decoders[kind]; !ok {
		return fmt.Errorf("subscribe %q: %w", kind, ErrUnknownKind)
	}
	b.handlers[kind] = h
	return nil
}

// Decode turns a raw custom event into a typed event
func Decode(raw events.CustomEvent) (events.Event, error) {
	decode, ok := decoders[raw.Kind]
	if !ok {
		return events.Event{}, fmt.Errorf("decode %q: %w", raw.Kind, ErrUnknownKind)
	}
	payload, err := decode(raw.Data)
	if err != nil {
		return events.Event{}, fmt.Errorf("decode %s payload: %w", raw.Kind, err)
	}
	return events.Event{
		ID:      raw.ID,
		Kind:    raw.Kind,
		Sender:  raw.Sender,
		Payload: payload,
	}, nil
}

// Dispatch decodes raw and invokes the matching handler. Unknown kinds and
// malformed payloads are logged and dropped.
func (b *Bus) Dispatch(ctx context.Context, raw events.CustomEvent) {
	ev, err := Decode(raw)
	if err != nil {
		log.Warn().
			Err(err).
			Str("event_id", raw.ID).
			Str("event_kind", string(raw.Kind)).
			Str("sender", raw.Sender).
			Msg("dropping undecodable event")
		return
	}

	h, ok := b.handlers[ev.Kind]
	if !ok {
		log.Debug().
			Str("event_kind", string(ev.Kind)).
			Msg("no handler subscribed - ignoring")
		return
	}
	h(ctx, ev)
}
