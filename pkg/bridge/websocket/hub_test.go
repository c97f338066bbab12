package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	pb "github.com/openeeg/headband.go/pkg/proto/headband/v1"
)

func waitClients(t *testing.T, h *Hub, n int) {
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("%d clients connected, want %d", h.Clients(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := websocket.Dial(url, "", server.URL)
	require.NoError(t, err)
	return conn
}

func TestHubBroadcastsRecords(t *testing.T) {
	hub := NewHub("dev1")
	hub.Cycle = func() string { return "c1" }
	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	c1, c2 := dial(t, server), dial(t, server)
	defer c1.Close()
	defer c2.Close()
	waitClients(t, hub, 2)

	require.NoError(t, hub.HandleRecord(context.Background(), 1))
	require.NoError(t, hub.HandleRecord(context.Background(), 2))

	for _, conn := range []*websocket.Conn{c1, c2} {
		for n := uint64(1); n <= 2; n++ {
			var payload []byte
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			require.NoError(t, websocket.Message.Receive(conn, &payload))
			var rec pb.Record
			require.NoError(t, proto.Unmarshal(payload, &rec))
			require.Equal(t, n, rec.Value)
			require.Equal(t, n, rec.Seq)
			require.Equal(t, "dev1", rec.Device)
			require.Equal(t, "c1", rec.Cycle)
		}
	}

	c1.Close()
	waitClients(t, hub, 1)
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub("dev1")
	hub.Backlog = 1
	// registered but never drained
	hub.clients = map[*client]struct{}{{sendCh: make(chan []byte, 1)}: {}}
	require.NoError(t, hub.HandleRecord(context.Background(), 1))
	require.NoError(t, hub.HandleRecord(context.Background(), 2))
	require.Equal(t, uint64(1), hub.Dropped())
}

func TestHubWithoutClients(t *testing.T) {
	hub := NewHub("dev1")
	require.NoError(t, hub.HandleRecord(context.Background(), 1))
	require.Zero(t, hub.Dropped())
}
