package authority

import (
	"math/rand"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

// Bounds is the rectangle items spawn in
type Bounds struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// RandomPositions picks uniformly distributed positions inside Bounds
type RandomPositions struct {
	bounds Bounds
	rng    *rand.Rand
}

// NewRandomPositions creates a position source over b
func NewRandomPositions(b Bounds, rng *rand.Rand) *RandomPositions {
	return &RandomPositions{bounds: b, rng: rng}
}

// RandomPosition implements PositionSource
func (p *RandomPositions) RandomPosition() models.Vec2 {
	return models.Vec2{
		X: p.bounds.MinX + p.rng.Float64()*(p.bounds.MaxX-p.bounds.MinX),
		Y: p.bounds.MinY + p.rng.Float64()*(p.bounds.MaxY-p.bounds.MinY),
	}
}
