package ws

import (
	"encoding/json"
	"testing"
	"time"

	"scramble-server/boardregistry"
	"scramble-server/config"
)

func newTestClient(t *testing.T) (*Client, *boardregistry.Registry) {
	t.Helper()
	reg := boardregistry.New()
	if _, _, err := reg.Create("lobby", 1, 2, []string{"X", "X"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	cfg := config.Defaults()
	cfg.WaitForChangeTimeoutMS = 200
	hub := NewHub(cfg, reg, nil, nil)
	c := &Client{Hub: hub, Send: make(chan []byte, 16)}
	return c, reg
}

func recvMessage(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal sent message: %v", err)
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("no message sent")
		return nil
	}
}

func TestHandleJoinBoard_Success(t *testing.T) {
	c, _ := newTestClient(t)
	raw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "lobby", ActorID: "a"})
	c.handleJoinBoard(raw)

	msg := recvMessage(t, c)
	if msg["type"] != "joined" {
		t.Fatalf("expected joined message, got %v", msg)
	}
	if c.Board == nil || c.ActorID != "a" {
		t.Error("client did not record board/actor state")
	}
}

func TestHandleJoinBoard_UnknownBoard(t *testing.T) {
	c, _ := newTestClient(t)
	raw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "nope", ActorID: "a"})
	c.handleJoinBoard(raw)

	msg := recvMessage(t, c)
	if msg["type"] != "error" {
		t.Fatalf("expected error message, got %v", msg)
	}
}

func TestHandleFlip_RequiresJoin(t *testing.T) {
	c, _ := newTestClient(t)
	raw, _ := json.Marshal(FlipMsg{Type: "flip", Row: 0, Col: 0})
	c.handleFlip(raw)

	msg := recvMessage(t, c)
	if msg["type"] != "error" {
		t.Fatalf("expected error before joining a board, got %v", msg)
	}
}

func TestHandleFlip_ReturnsView(t *testing.T) {
	c, _ := newTestClient(t)
	joinRaw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "lobby", ActorID: "a"})
	c.handleJoinBoard(joinRaw)
	recvMessage(t, c) // joined

	flipRaw, _ := json.Marshal(FlipMsg{Type: "flip", Row: 0, Col: 0})
	c.handleFlip(flipRaw)

	msg := recvMessage(t, c)
	if msg["type"] != "view" {
		t.Fatalf("expected view message, got %v", msg)
	}
}

func TestHandleTransform_UnknownName(t *testing.T) {
	c, _ := newTestClient(t)
	joinRaw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "lobby", ActorID: "a"})
	c.handleJoinBoard(joinRaw)
	recvMessage(t, c)

	raw, _ := json.Marshal(TransformMsg{Type: "transform", Name: "does-not-exist"})
	c.handleTransform(raw)

	msg := recvMessage(t, c)
	if msg["type"] != "error" {
		t.Fatalf("expected error for unknown transform, got %v", msg)
	}
}

func TestHandleTransform_Uppercase(t *testing.T) {
	c, _ := newTestClient(t)
	joinRaw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "lobby", ActorID: "a"})
	c.handleJoinBoard(joinRaw)
	recvMessage(t, c)

	raw, _ := json.Marshal(TransformMsg{Type: "transform", Name: "uppercase"})
	c.handleTransform(raw)

	msg := recvMessage(t, c)
	if msg["type"] != "view" {
		t.Fatalf("expected view message, got %v", msg)
	}
}

func TestHandleView_RequiresJoin(t *testing.T) {
	c, _ := newTestClient(t)
	c.handleMessage([]byte(`{"type":"view"}`))

	msg := recvMessage(t, c)
	if msg["type"] != "error" {
		t.Fatalf("expected error before joining a board, got %v", msg)
	}
}

func TestHandleView_ReturnsCurrentView(t *testing.T) {
	c, _ := newTestClient(t)
	joinRaw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "lobby", ActorID: "a"})
	c.handleJoinBoard(joinRaw)
	recvMessage(t, c) // joined

	c.handleMessage([]byte(`{"type":"view"}`))
	msg := recvMessage(t, c)
	if msg["type"] != "view" {
		t.Fatalf("expected view message, got %v", msg)
	}
}

func TestHandleWaitForChange_TimesOutToCurrentView(t *testing.T) {
	c, _ := newTestClient(t)
	joinRaw, _ := json.Marshal(JoinBoardMsg{Type: "join_board", BoardID: "lobby", ActorID: "a"})
	c.handleJoinBoard(joinRaw)
	recvMessage(t, c)

	start := time.Now()
	c.handleWaitForChange()
	if time.Since(start) < 150*time.Millisecond {
		t.Error("expected handleWaitForChange to wait roughly the configured timeout")
	}

	msg := recvMessage(t, c)
	if msg["type"] != "view" {
		t.Fatalf("expected a view message even on timeout, got %v", msg)
	}
}

func TestHandleMessage_UnknownType(t *testing.T) {
	c, _ := newTestClient(t)
	c.handleMessage([]byte(`{"type":"bogus"}`))
	msg := recvMessage(t, c)
	if msg["type"] != "error" {
		t.Fatalf("expected error for unknown message type, got %v", msg)
	}
}
