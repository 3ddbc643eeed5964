package gateway

import (
	"sync"

	"github.com/mcdev12/ballbattle/go/internal/models"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
)

const FrameTypeSnapshot = "world_snapshot"

// Frame is the message sent to spectators
type Frame struct {
	Type     string               `json:"type"`
	Snapshot models.WorldSnapshot `json:"snapshot"`
}

var _ controller.Observer = (*Feed)(nil)

// Feed keeps the latest world snapshot and fans it out to spectators. Observe
// never blocks the world loop.
type Feed struct {
	cm *ConnectionManager

	mu     sync.RWMutex
	latest *models.WorldSnapshot
}

func NewFeed(cm *ConnectionManager) *Feed {
	return &Feed{cm: cm}
}

// Observe implements controller.Observer
func (f *Feed) Observe(snapshot models.WorldSnapshot) {
	f.mu.Lock()
	f.latest = &snapshot
	f.mu.Unlock()

	f.cm.Broadcast(Frame{Type: FrameTypeSnapshot, Snapshot: snapshot})
}

// Latest returns the last observed snapshot
func (f *Feed) Latest() (models.WorldSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return models.WorldSnapshot{}, false
	}
	return *f.latest, true
}

func (f *Feed) latestFrame() *Frame {
	snap, ok := f.Latest()
	if !ok {
		return nil
	}
	return &Frame{Type: FrameTypeSnapshot, Snapshot: snap}
}
