package natsroom

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

const (
	presencePrefix = "player."
	authorityKey   = "authority"
)

// presenceRecord is the value of a participant's presence key
type presenceRecord struct {
	Position models.Vec2 `json:"position"`
	SeenAt   time.Time   `json:"seenAt"`
}

// decodePresence reads a presence value. Undecodable values yield the zero
// record so the participant is still counted as present.
func decodePresence(value []byte) presenceRecord {
	var rec presenceRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		log.Debug().Err(err).Msg("undecodable presence value")
	}
	return rec
}

func presenceKey(participantID string) string {
	return presencePrefix + participantID
}

// participantFromKey returns the participant a presence key belongs to
func participantFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, presencePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, presencePrefix)
	return id, id != ""
}

// diffPresence compares the known participants with the live presence keys
func diffPresence(known map[string]models.Vec2, liveKeys []string) (joined, left []string) {
	live := make(map[string]struct{}, len(liveKeys))
	for _, key := range liveKeys {
		id, ok := participantFromKey(key)
		if !ok {
			continue
		}
		live[id] = struct{}{}
		if _, ok := known[id]; !ok {
			joined = append(joined, id)
		}
	}
	for id := range known {
		if _, ok := live[id]; !ok {
			left = append(left, id)
		}
	}
	sort.Strings(joined)
	sort.Strings(left)
	return joined, left
}
