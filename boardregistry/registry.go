// Package boardregistry hosts multiple named boards behind a single
// process: create, look up, and list boards backed by board.Board, keyed
// by an id assigned at creation time.
package boardregistry

import (
	"sync"

	"github.com/google/uuid"

	"scramble-server/board"
	"scramble-server/boarderrors"
)

// Registry is a concurrency-safe directory of hosted boards.
type Registry struct {
	mu     sync.RWMutex
	boards map[string]*board.Board
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{boards: make(map[string]*board.Board)}
}

// Create hosts a new board under id. If id is empty, a uuid is generated.
// Returns boarderrors.ErrBoardExists if id is already in use.
func (r *Registry) Create(id string, rows, cols int, contents []string) (string, *board.Board, error) {
	b, err := board.New(rows, cols, contents)
	if err != nil {
		return "", nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.boards[id]; exists {
		return "", nil, boarderrors.ErrBoardExists
	}
	r.boards[id] = b
	return id, b, nil
}

// Get returns the board hosted under id, or boarderrors.ErrUnknownBoard.
func (r *Registry) Get(id string) (*board.Board, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boards[id]
	if !ok {
		return nil, boarderrors.ErrUnknownBoard
	}
	return b, nil
}

// Remove stops hosting the board under id. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, id)
}

// IDs returns the ids of every currently hosted board, in no particular
// order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.boards))
	for id := range r.boards {
		ids = append(ids, id)
	}
	return ids
}
