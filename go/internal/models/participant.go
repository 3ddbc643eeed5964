package models

// Vec2 is a position on the battlefield plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Participant is a member of the room session as reported by the transport.
type Participant struct {
	ID          string `json:"id"`
	IsLocal     bool   `json:"-"`
	IsAuthority bool   `json:"-"`
	Position    Vec2   `json:"pos"`
}
