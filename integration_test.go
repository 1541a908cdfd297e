package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scramble-server/api"
	"scramble-server/boardregistry"
	"scramble-server/config"
	"scramble-server/ws"
)

// setupTestServer wires a Hub and api.Handler over a fresh registry hosting
// one 2x2 board, matching the adapter wiring in main().
func setupTestServer(t *testing.T) (*httptest.Server, *boardregistry.Registry, func()) {
	t.Helper()

	reg := boardregistry.New()
	if _, _, err := reg.Create("lobby", 2, 2, []string{"A", "A", "B", "B"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cfg := config.Defaults()
	cfg.WaitForChangeTimeoutMS = 300

	hub := ws.NewHub(cfg, reg, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	handler := api.NewHandler(cfg, reg, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/api/boards", handler.ListBoards)
	mux.HandleFunc("/api/boards/", boardSubrouter(handler))

	server := httptest.NewServer(mux)
	cleanup := func() {
		cancel()
		server.Close()
	}
	return server, reg, cleanup
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v\ndata: %s", err, string(data))
	}
	return msg
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func TestIntegration_JoinAndFlip(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, map[string]string{"type": "join_board", "boardId": "lobby", "actorId": "alice"})
	joined := readMsg(t, conn)
	if joined["type"] != "joined" {
		t.Fatalf("expected joined, got %v", joined["type"])
	}
	if joined["rows"] != float64(2) || joined["cols"] != float64(2) {
		t.Errorf("expected 2x2 board, got rows=%v cols=%v", joined["rows"], joined["cols"])
	}

	sendMsg(t, conn, map[string]interface{}{"type": "flip", "row": 0, "col": 0})
	view := readMsg(t, conn)
	if view["type"] != "view" {
		t.Fatalf("expected view after flip, got %v", view["type"])
	}
	lines := strings.Split(view["view"].(string), "\n")
	if lines[0] != "2x2" {
		t.Fatalf("expected header 2x2, got %q", lines[0])
	}
	if lines[1] != "my A" {
		t.Errorf("expected alice to own the flipped cell, got %q", lines[1])
	}
}

func TestIntegration_TwoActorsCompleteAMatch(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	alice := connectWS(t, server)
	defer alice.Close()
	bob := connectWS(t, server)
	defer bob.Close()

	sendMsg(t, alice, map[string]string{"type": "join_board", "boardId": "lobby", "actorId": "alice"})
	readMsg(t, alice) // joined
	sendMsg(t, bob, map[string]string{"type": "join_board", "boardId": "lobby", "actorId": "bob"})
	readMsg(t, bob) // joined

	sendMsg(t, alice, map[string]interface{}{"type": "flip", "row": 0, "col": 0})
	readMsg(t, alice) // view: alice holds A at (0,0)

	sendMsg(t, alice, map[string]interface{}{"type": "flip", "row": 0, "col": 1})
	view := readMsg(t, alice)
	lines := strings.Split(view["view"].(string), "\n")
	// (0,0) and (0,1) both content A: the matched pair stays alice's until her next flip.
	if lines[1] != "my A" || lines[2] != "my A" {
		t.Fatalf("expected matched cells held by alice, got %q / %q", lines[1], lines[2])
	}

	sendMsg(t, alice, map[string]interface{}{"type": "flip", "row": 1, "col": 0})
	view = readMsg(t, alice)
	lines = strings.Split(view["view"].(string), "\n")
	// alice's next flip removes the matched pair before taking (1,0).
	if lines[1] != "none" || lines[2] != "none" {
		t.Fatalf("expected matched cells removed, got %q / %q", lines[1], lines[2])
	}
}

func TestIntegration_FlipRequiresJoin(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, map[string]interface{}{"type": "flip", "row": 0, "col": 0})
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for flip without joining a board, got %v", msg["type"])
	}
}

func TestIntegration_JoinUnknownBoard(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, map[string]string{"type": "join_board", "boardId": "nope", "actorId": "alice"})
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for unknown board, got %v", msg["type"])
	}
}

func TestIntegration_HTTPViewReflectsWebSocketFlip(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	conn := connectWS(t, server)
	defer conn.Close()
	sendMsg(t, conn, map[string]string{"type": "join_board", "boardId": "lobby", "actorId": "alice"})
	readMsg(t, conn) // joined
	sendMsg(t, conn, map[string]interface{}{"type": "flip", "row": 0, "col": 0})
	readMsg(t, conn) // view

	resp, err := http.Get(server.URL + "/api/boards/lobby/view?actorId=alice")
	if err != nil {
		t.Fatalf("GET view: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	lines := strings.Split(body["view"].(string), "\n")
	if lines[1] != "my A" {
		t.Errorf("expected HTTP view to reflect the WebSocket flip, got %q", lines[1])
	}
}

func TestIntegration_ListBoards(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := http.Get(server.URL + "/api/boards")
	if err != nil {
		t.Fatalf("GET boards: %v", err)
	}
	defer resp.Body.Close()
	var body map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body["boards"]) != 1 || body["boards"][0] != "lobby" {
		t.Errorf("expected [lobby], got %v", body["boards"])
	}
}
