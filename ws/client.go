package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"scramble-server/board"
	"scramble-server/wsutil"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between one WebSocket connection and the Hub's
// board registry. Each client is joined to at most one board at a time.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	BoardID string
	Board   *board.Board
	ActorID string

	// Authenticated is true once auth has resolved an actor id, or
	// immediately if the hub runs without JWKS auth configured.
	Authenticated bool
}

// ReadPump pumps messages from the connection to handleMessage. Runs in
// its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("read error", "tag", "ws", "err", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from Send to the connection, and pings it on
// pingPeriod to keep it alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("invalid message format")
		return
	}

	allowedWithoutAuth := envelope.Type == "auth" || c.Hub.Auth == nil
	if !c.Authenticated && !allowedWithoutAuth {
		c.sendError("authentication required: send an auth message first")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Raw)
	case "join_board":
		c.handleJoinBoard(envelope.Raw)
	case "flip":
		c.handleFlip(envelope.Raw)
	case "transform":
		c.handleTransform(envelope.Raw)
	case "view":
		c.handleView()
	case "wait_for_change":
		c.handleWaitForChange()
	default:
		c.sendError("unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleAuth(raw json.RawMessage) {
	if c.Authenticated {
		c.sendError("already authenticated")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Token == "" {
		c.sendError("invalid auth message")
		return
	}
	if c.Hub.Auth == nil {
		c.sendError("server auth not configured")
		return
	}
	actorID, err := c.Hub.Auth.ActorID(msg.Token)
	if err != nil {
		c.sendError("invalid or expired token")
		return
	}
	c.ActorID = actorID
	c.Authenticated = true
}

func (c *Client) handleJoinBoard(raw json.RawMessage) {
	var msg JoinBoardMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.BoardID == "" {
		c.sendError("invalid join_board message")
		return
	}
	b, err := c.Hub.Registry.Get(msg.BoardID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	if c.Hub.Auth == nil {
		if msg.ActorID == "" {
			c.sendError("actorId is required when server auth is not configured")
			return
		}
		c.ActorID = msg.ActorID
		c.Authenticated = true
	}

	c.BoardID = msg.BoardID
	c.Board = b
	rows, cols := b.Dimensions()
	c.send(JoinedMsg{Type: "joined", BoardID: msg.BoardID, ActorID: c.ActorID, Rows: rows, Cols: cols})
}

func (c *Client) handleFlip(raw json.RawMessage) {
	if !c.requireJoined() {
		return
	}
	var msg FlipMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid flip message")
		return
	}
	view, err := c.Board.FlipAndView(msg.Row, msg.Col, c.ActorID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if c.Hub.Journal != nil {
		if err := c.Hub.Journal.RecordFlip(context.Background(), c.BoardID, c.ActorID, msg.Row, msg.Col); err != nil {
			slog.Warn("journal write failed", "tag", "ws", "err", err)
		}
	}
	c.send(ViewMsg{Type: "view", View: view})
}

func (c *Client) handleTransform(raw json.RawMessage) {
	if !c.requireJoined() {
		return
	}
	var msg TransformMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid transform message")
		return
	}
	f, ok := board.NamedTransform(msg.Name)
	if !ok {
		c.sendError("unknown transform: " + msg.Name)
		return
	}
	view, err := c.Board.TransformAndView(c.ActorID, f)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if c.Hub.Journal != nil {
		if err := c.Hub.Journal.RecordTransform(context.Background(), c.BoardID, c.ActorID, msg.Name); err != nil {
			slog.Warn("journal write failed", "tag", "ws", "err", err)
		}
	}
	c.send(ViewMsg{Type: "view", View: view})
}

// handleView sends the joined board's current view with no waiting.
func (c *Client) handleView() {
	if !c.requireJoined() {
		return
	}
	c.send(ViewMsg{Type: "view", View: c.Board.View(c.ActorID)})
}

// handleWaitForChange blocks the connection's ReadPump goroutine until the
// board's next publish or a configured timeout, mirroring the semantics of
// a direct waitForChange call. Running it inline (rather than in a
// separate goroutine) keeps per-client message ordering simple: no further
// client message is processed until this one resolves. This is a single
// one-shot wait, not a standing subscription — a client that wants a
// continuously refreshed view re-sends wait_for_change after each reply.
func (c *Client) handleWaitForChange() {
	if !c.requireJoined() {
		return
	}
	timeout := time.Duration(c.Hub.Config.WaitForChangeTimeoutMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	view, err := c.Board.WaitForChangeAndView(ctx, c.ActorID)
	if err != nil {
		// Timeout is not a client error: just return the current view.
		view = c.Board.View(c.ActorID)
	}
	if c.Hub.Journal != nil {
		if err := c.Hub.Journal.RecordWaitForChange(context.Background(), c.BoardID, c.ActorID); err != nil {
			slog.Warn("journal write failed", "tag", "ws", "err", err)
		}
	}
	c.send(ViewMsg{Type: "view", View: view})
}

func (c *Client) requireJoined() bool {
	if c.Board == nil {
		c.sendError("join a board first")
		return false
	}
	return true
}

func (c *Client) sendError(message string) {
	c.send(ErrorMsg{Type: "error", Message: message})
}

func (c *Client) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal failed", "tag", "ws", "err", err)
		return
	}
	wsutil.SafeSend(c.Send, data)
}
