package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

func testSnapshot(items ...int) models.WorldSnapshot {
	snap := models.WorldSnapshot{
		RoomID:  "arena",
		LocalID: "a",
		State:   "PLAYING",
		Avatars: []models.Avatar{{ParticipantID: "a", Alive: true}},
		Items:   []models.Item{},
	}
	for _, id := range items {
		snap.Items = append(snap.Items, models.Item{ID: id})
	}
	return snap
}

func TestService_WorldStateNotReady(t *testing.T) {
	s := NewService(DefaultConfig(), clockwork.NewRealClock())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/world/state", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestService_WorldStateReturnsLatestSnapshot(t *testing.T) {
	s := NewService(DefaultConfig(), clockwork.NewRealClock())
	s.Feed().Observe(testSnapshot(1))
	s.Feed().Observe(testSnapshot(1, 2))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/world/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got models.WorldSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "arena", got.RoomID)
	assert.Len(t, got.Items, 2)
}

func TestService_WorldStateRejectsPost(t *testing.T) {
	s := NewService(DefaultConfig(), clockwork.NewRealClock())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/world/state", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestService_HealthAndCORS(t *testing.T) {
	s := NewService(DefaultConfig(), clockwork.NewRealClock())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://spectator.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "OK", string(body))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestService_SpectatorReceivesSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewService(DefaultConfig(), clockwork.NewRealClock())
	go s.Start(ctx)
	s.Feed().Observe(testSnapshot(1))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/world"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readFrame := func() Frame {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := readFrame()
	assert.Equal(t, FrameTypeSnapshot, first.Type)
	assert.Len(t, first.Snapshot.Items, 1)

	require.Eventually(t, func() bool {
		return s.connectionManager.ConnectionCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	s.Feed().Observe(testSnapshot(1, 2, 3))
	// An earlier broadcast of the first snapshot may still be in flight.
	for i := 0; i < 3; i++ {
		if len(readFrame().Snapshot.Items) == 3 {
			return
		}
	}
	t.Fatal("never received the updated snapshot")
}
