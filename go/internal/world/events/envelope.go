package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewCustomEvent wraps a payload into the envelope sent over the transport.
func NewCustomEvent(sender string, payload Payload, now time.Time) (CustomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return CustomEvent{}, fmt.Errorf("marshal %s payload: %w", payload.Kind(), err)
	}
	return CustomEvent{
		ID:        uuid.New().String(),
		Kind:      payload.Kind(),
		Sender:    sender,
		Timestamp: now.UTC(),
		Data:      data,
	}, nil
}
