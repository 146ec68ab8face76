package activity

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinswiper/internal/domain"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsVoteEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	sent := domain.VoteEvent{
		TokenID:           "tok-1",
		BaseTokenSymbol:   "BONK",
		VoteType:          domain.VoteBullish,
		BullishVotes:      3,
		BearishVotes:      1,
		BullishPercentage: 75,
		At:                time.Now().UTC(),
	}
	hub.Publish(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.VoteEvent
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, sent.TokenID, got.TokenID)
	assert.Equal(t, sent.VoteType, got.VoteType)
	assert.Equal(t, sent.BullishPercentage, got.BullishPercentage)
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Publishing with no clients is a no-op.
	hub.Publish(domain.VoteEvent{TokenID: "tok-1"})
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	// Stop reading and flood until the socket and channel buffers fill;
	// the hub must shed the client rather than stall.
	_ = conn
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was never dropped")
		}
		hub.Publish(domain.VoteEvent{TokenID: "tok-1", BaseTokenSymbol: "BONKBONKBONK"})
	}
}
