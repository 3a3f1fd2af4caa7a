package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/hermes-asr/pkg/hermes"
)

// EventsPath is where [Hub] is mounted on the HTTP server.
const EventsPath = "/api/events/text"

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Hub streams captured text to websocket clients. Each connection receives
// every [hermes.AsrTextCaptured] as a JSON text frame; a "siteId" query
// parameter restricts the stream to one site.
//
// A client that falls behind by more than its buffer loses events rather
// than stalling the bridge.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

type client struct {
	site string
	send chan hermes.AsrTextCaptured
}

var (
	_ Sink         = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
}

// Close disconnects every client with a going-away status. Connections
// accepted afterwards are closed immediately.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Observe implements [Sink].
func (h *Hub) Observe(_ context.Context, msg hermes.Message) {
	tc, ok := msg.(hermes.AsrTextCaptured)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.site != "" && c.site != tc.SiteID {
			continue
		}
		select {
		case c.send <- tc:
		default:
			slog.Debug("events client too slow, dropping event", "site_id", tc.SiteID)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Debug("events websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	c := &client{
		site: r.URL.Query().Get("siteId"),
		send: make(chan hermes.AsrTextCaptured, clientBuffer),
	}
	h.add(c)
	defer h.remove(c)

	// Clients never send; CloseRead cancels ctx once the peer closes.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				slog.Debug("events client write failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
