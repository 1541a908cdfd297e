// Package api implements the HTTP surface around a boardregistry.Registry:
// listing boards, viewing one, flipping a cell, and running a named
// transform.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"scramble-server/board"
	"scramble-server/boardauth"
	"scramble-server/boarderrors"
	"scramble-server/boardregistry"
	"scramble-server/config"
	"scramble-server/journal"
)

const bearerPrefix = "Bearer "

// Handler holds the dependencies HTTP handlers need.
type Handler struct {
	Config   *config.Config
	Registry *boardregistry.Registry
	Auth     *boardauth.Resolver // nil when JWKS auth is not configured
	Journal  *journal.Journal    // nil when persistence is not configured
}

// NewHandler builds a Handler with the given dependencies.
func NewHandler(cfg *config.Config, reg *boardregistry.Registry, auth *boardauth.Resolver, jrnl *journal.Journal) *Handler {
	return &Handler{Config: cfg, Registry: reg, Auth: auth, Journal: jrnl}
}

// CORS sets CORS headers on the response. Call before writing a body;
// returns true if the request was a preflight OPTIONS and has already been
// answered.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// actorID resolves the caller's identity: from a validated bearer token
// when JWKS auth is configured, otherwise from an explicit query
// parameter (development mode).
func (h *Handler) actorID(r *http.Request) (string, error) {
	if h.Auth == nil {
		id := r.URL.Query().Get("actorId")
		if id == "" {
			return "", errMissingActorID
		}
		return id, nil
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", errMissingActorID
	}
	return h.Auth.ActorIDFromHeader(authHeader)
}

var errMissingActorID = &actorIDError{"actor identity required"}

type actorIDError struct{ msg string }

func (e *actorIDError) Error() string { return e.msg }

// ListBoards handles GET /api/boards (list hosted board ids) and POST
// /api/boards (host a new board at runtime).
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]interface{}{"boards": h.Registry.IDs()})
	case http.MethodPost:
		h.createBoard(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// createBoardRequest is the body of POST /api/boards.
type createBoardRequest struct {
	ID       string   `json:"id,omitempty"`
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	Contents []string `json:"contents"`
}

func (h *Handler) createBoard(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	id, b, err := h.Registry.Create(req.ID, req.Rows, req.Cols, req.Contents)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, boarderrors.ErrBoardExists) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	rows, cols := b.Dimensions()
	writeJSON(w, map[string]interface{}{"id": id, "rows": rows, "cols": cols})
}

// View handles GET /api/boards/{id}/view.
func (h *Handler) View(w http.ResponseWriter, r *http.Request, boardID string) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := h.Registry.Get(boardID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	actorID, err := h.actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]interface{}{"view": b.View(actorID)})
}

// flipRequest is the body of POST /api/boards/{id}/flip.
type flipRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Flip handles POST /api/boards/{id}/flip.
func (h *Handler) Flip(w http.ResponseWriter, r *http.Request, boardID string) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := h.Registry.Get(boardID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	actorID, err := h.actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	var req flipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := b.FlipAndView(req.Row, req.Col, actorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.Journal != nil {
		if err := h.Journal.RecordFlip(r.Context(), boardID, actorID, req.Row, req.Col); err != nil {
			slog.Warn("journal write failed", "tag", "api", "err", err)
		}
	}
	writeJSON(w, map[string]interface{}{"view": view})
}

// transformRequest is the body of POST /api/boards/{id}/transform.
type transformRequest struct {
	Name string `json:"name"`
}

// Transform handles POST /api/boards/{id}/transform.
func (h *Handler) Transform(w http.ResponseWriter, r *http.Request, boardID string) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := h.Registry.Get(boardID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	actorID, err := h.actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	f, ok := board.NamedTransform(req.Name)
	if !ok {
		http.Error(w, "unknown transform: "+req.Name, http.StatusBadRequest)
		return
	}
	view, err := b.TransformAndView(actorID, f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.Journal != nil {
		if err := h.Journal.RecordTransform(r.Context(), boardID, actorID, req.Name); err != nil {
			slog.Warn("journal write failed", "tag", "api", "err", err)
		}
	}
	writeJSON(w, map[string]interface{}{"view": view})
}

// Events handles GET /api/boards/{id}/events, listing recent journaled
// operations. Returns an empty list when persistence is not configured.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request, boardID string) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.Registry.Get(boardID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var events []journal.Event
	var err error
	if h.Journal != nil {
		events, err = h.Journal.ListRecent(context.Background(), boardID, limit)
		if err != nil {
			slog.Error("journal read failed", "tag", "api", "err", err)
			http.Error(w, "failed to load events", http.StatusInternalServerError)
			return
		}
	}
	if events == nil {
		events = []journal.Event{}
	}
	writeJSON(w, map[string]interface{}{"events": events})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "tag", "api", "err", err)
	}
}
