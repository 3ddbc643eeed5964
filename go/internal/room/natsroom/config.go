package natsroom

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds the connection settings for one participant in one room
type Config struct {
	URL           string
	RoomID        string
	ParticipantID string

	// PresenceTTL is how long a silent participant stays in the room
	PresenceTTL       time.Duration
	HeartbeatInterval time.Duration

	// GuardedWrites makes property writes compare-and-set against the last
	// observed revision of each key.
	GuardedWrites bool

	// Values larger than CompressThreshold bytes are stored zstd compressed. Zero
	// disables compression.
	CompressThreshold int
	WriteQueueSize    int
	InboxSize         int

	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:               nats.DefaultURL,
		PresenceTTL:       10 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		CompressThreshold: 4096,
		WriteQueueSize:    64,
		InboxSize:         256,
		MaxReconnects:     -1, // Infinite
		ReconnectWait:     2 * time.Second,
	}
}

func (c Config) eventsSubject() string {
	return fmt.Sprintf("ballbattle.room.%s.events", c.RoomID)
}

func (c Config) propsBucket() string {
	return fmt.Sprintf("ROOM_%s", c.RoomID)
}

func (c Config) presenceBucket() string {
	return fmt.Sprintf("ROOM_%s_PRESENCE", c.RoomID)
}
