package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

// Shared room property keys.
const (
	PropItemAllocationCounter = "itemAllocationCounter"
	PropItemList              = "itemList"
)

// Notification is an inbound message from the room transport.
type Notification interface {
	notification()
}

// AuthoritySwitched reports that the room authority moved to another participant.
type AuthoritySwitched struct {
	NewAuthorityID string
}

// CustomEvent is a raw event as delivered by the transport.
type CustomEvent struct {
	ID        string          `json:"eventId"`
	Kind      Kind            `json:"eventKind"`
	Sender    string          `json:"sender"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"eventData"`
}

// RoomPropertiesChanged carries only the shared property keys that changed.
type RoomPropertiesChanged struct {
	Changed map[string]json.RawMessage
}

// ParticipantLeft reports that the transport lost a participant's presence.
type ParticipantLeft struct {
	ParticipantID string
}

func (AuthoritySwitched) notification()     {}
func (CustomEvent) notification()           {}
func (RoomPropertiesChanged) notification() {}
func (ParticipantLeft) notification()       {}

// Event is a decoded custom event.
type Event struct {
	ID      string
	Kind    Kind
	Sender  string
	Payload Payload
}

// EncodeProperties splits a partial room property update into its changed keys.
func EncodeProperties(update models.RoomProperties) (map[string]json.RawMessage, error) {
	changed := make(map[string]json.RawMessage, 2)
	if update.ItemAllocationCounter != nil {
		raw, err := json.Marshal(*update.ItemAllocationCounter)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", PropItemAllocationCounter, err)
		}
		changed[PropItemAllocationCounter] = raw
	}
	if update.ItemList != nil {
		raw, err := json.Marshal(update.ItemList)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", PropItemList, err)
		}
		changed[PropItemList] = raw
	}
	return changed, nil
}
