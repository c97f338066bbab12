// Package websocket streams consumed records to websocket clients.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"golang.org/x/net/websocket"

	fx "github.com/openeeg/headband.go/pkg/framework"
	pb "github.com/openeeg/headband.go/pkg/proto/headband/v1"
)

// DefaultBacklog is the number of records buffered per client.
const DefaultBacklog = 256

// Hub is a record sink broadcasting protobuf encoded records. A
// client falling behind by more than Backlog records loses records.
type Hub struct {
	Device  string
	Backlog int
	// Cycle returns the boot cycle stamped on records.
	Cycle func() string

	lock    sync.RWMutex
	clients map[*client]struct{}
	seq     uint64
	dropped uint64
}

type client struct {
	conn   *websocket.Conn
	sendCh chan []byte
}

// NewHub creates a Hub.
func NewHub(device string) *Hub {
	return &Hub{Device: device, Backlog: DefaultBacklog}
}

// Name implements framework.Named.
func (h *Hub) Name() string {
	return "websocket"
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of records not delivered to slow clients.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// HandleRecord implements appcore.Sink.
func (h *Hub) HandleRecord(ctx context.Context, v uint64) error {
	rec := &pb.Record{
		Device:      h.Device,
		Seq:         atomic.AddUint64(&h.seq, 1),
		Value:       v,
		TimestampNs: time.Now().UnixNano(),
	}
	if h.Cycle != nil {
		rec.Cycle = h.Cycle()
	}
	payload, err := proto.Marshal(rec)
	if err != nil {
		return err
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for c := range h.clients {
		select {
		case c.sendCh <- payload:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
	return nil
}

// Handler returns the websocket endpoint.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	backlog := h.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	c := &client{conn: conn, sendCh: make(chan []byte, backlog)}
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*client]struct{})
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)

	defer func() {
		h.lock.Lock()
		delete(h.clients, c)
		h.lock.Unlock()
		conn.Close()
		glog.Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
	}()

	closedCh := make(chan struct{})
	go func() {
		defer close(closedCh)
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
	}()
	for {
		select {
		case payload := <-c.sendCh:
			if err := websocket.Message.Send(conn, payload); err != nil {
				return
			}
		case <-closedCh:
			return
		}
	}
}

// Server serves the hub on Addr.
type Server struct {
	Addr string
	Hub  *Hub
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "websocket:" + s.Addr
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/records", s.Hub.Handler())
	server := &http.Server{Handler: mux}
	glog.Infof("websocket listening on %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, server, func() error {
		if err := server.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}
