package models

import "time"

// Item is an ownerless consumable world object. The JSON shape is the wire
// format of the shared itemList room property.
type Item struct {
	ID   int     `json:"id"`
	Type int     `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Position returns the item position as a vector.
func (i Item) Position() Vec2 {
	return Vec2{X: i.X, Y: i.Y}
}

// RoomProperties is a partial update of the shared room state. Nil fields are
// not part of the update.
type RoomProperties struct {
	ItemAllocationCounter *int   `json:"itemAllocationCounter,omitempty"`
	ItemList              []Item `json:"itemList,omitempty"`
}

// WorldSnapshot is a read-only copy of one client's replicated world.
type WorldSnapshot struct {
	RoomID        string    `json:"room_id"`
	LocalID       string    `json:"local_id"`
	State         string    `json:"state"`
	IsAuthority   bool      `json:"is_authority"`
	NextItemID    *int      `json:"next_item_id,omitempty"`
	SharedCounter *int      `json:"shared_counter,omitempty"`
	Avatars       []Avatar  `json:"avatars"`
	Items         []Item    `json:"items"`
	TakenAt       time.Time `json:"taken_at"`
}
