package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"scramble-server/boardauth"
	"scramble-server/boardregistry"
	"scramble-server/config"
	"scramble-server/journal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks active WebSocket connections and routes their flip/view/
// transform/wait_for_change traffic to the board registry.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client

	Registry *boardregistry.Registry
	Auth     *boardauth.Resolver // nil when JWKS auth is not configured
	Journal  *journal.Journal    // nil when persistence is not configured
	Config   *config.Config
}

// NewHub builds a Hub serving boards out of reg.
func NewHub(cfg *config.Config, reg *boardregistry.Registry, auth *boardauth.Resolver, jrnl *journal.Journal) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Registry:   reg,
		Auth:       auth,
		Journal:    jrnl,
		Config:     cfg,
	}
}

// Run processes connection lifecycle events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "total", len(h.Clients))
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "total", len(h.Clients))
			}
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and starts
// its read/write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
