package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

func TestEncodeProperties_OnlyPresentKeys(t *testing.T) {
	counter := 4
	tests := []struct {
		name   string
		update models.RoomProperties
		want   map[string]string
	}{
		{"empty", models.RoomProperties{}, map[string]string{}},
		{"counter only", models.RoomProperties{ItemAllocationCounter: &counter}, map[string]string{PropItemAllocationCounter: `4`}},
		{
			"counter and list",
			models.RoomProperties{ItemAllocationCounter: &counter, ItemList: []models.Item{{ID: 3, Type: 1, X: 1.5, Y: -2}}},
			map[string]string{
				PropItemAllocationCounter: `4`,
				PropItemList:              `[{"id":3,"type":1,"x":1.5,"y":-2}]`,
			},
		},
		{"empty list is still a key", models.RoomProperties{ItemList: []models.Item{}}, map[string]string{PropItemList: `[]`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := EncodeProperties(tc.update)
			require.NoError(t, err)
			got := map[string]string{}
			for k, v := range changed {
				got[k] = string(v)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewCustomEvent_Envelope(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, err := NewCustomEvent("p1", ConsumptionPayload{AvatarID: "p1", ItemID: 9}, now)
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, KindConsumption, ev.Kind)
	assert.Equal(t, "p1", ev.Sender)
	assert.Equal(t, now, ev.Timestamp)
	assert.JSONEq(t, `{"avatarId":"p1","itemId":9}`, string(ev.Data))

	wire, err := json.Marshal(ev)
	require.NoError(t, err)
	var back CustomEvent
	require.NoError(t, json.Unmarshal(wire, &back))
	assert.Equal(t, ev.Kind, back.Kind)
}
