// Package board implements the concurrent Memory Scramble game board: a
// shared grid of face-down cards on which many independent actors flip
// cards, claim temporary exclusive control, and match pairs. The Board
// type is a monitor — every exported method that touches grid or actor
// state acquires the same mutex, so callers never observe a torn mutation.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"scramble-server/boarderrors"
)

// Board is the grid of cells plus the bookkeeping the flip protocol needs:
// per-actor claims, the waiter FIFOs, and the change-notification bus.
// Rows and Cols are fixed for the board's lifetime.
type Board struct {
	mu sync.Mutex

	rows, cols int
	cells      []Cell

	actors map[string]*ActorSlot
	owners map[Coordinate]string // coordinate -> controlling actorId, present only while controlled

	waiters *WaiterRegistry
	changes *ChangeBus
}

// New builds a board of the given dimensions from a row-major list of cell
// contents. Every entry must be a non-empty string containing no
// whitespace; len(contents) must equal rows*cols. This only validates the
// data-model contract (§3/§4.1); lexing an on-disk board file is the
// boardfile package's job.
func New(rows, cols int, contents []string) (*Board, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("board: rows and cols must each be >= 1, got %dx%d", rows, cols)
	}
	if len(contents) != rows*cols {
		return nil, fmt.Errorf("board: expected %d cells for a %dx%d board, got %d", rows*cols, rows, cols, len(contents))
	}
	cells := make([]Cell, len(contents))
	for i, s := range contents {
		if s == "" || strings.ContainsAny(s, " \t\r\n\v\f") {
			return nil, fmt.Errorf("board: illegal cell content %q at index %d", s, i)
		}
		cells[i] = Cell{Content: s}
	}
	return &Board{
		rows:    rows,
		cols:    cols,
		cells:   cells,
		actors:  make(map[string]*ActorSlot),
		owners:  make(map[Coordinate]string),
		waiters: NewWaiterRegistry(),
		changes: NewChangeBus(),
	}, nil
}

// Dimensions returns the board's fixed row and column counts.
func (b *Board) Dimensions() (rows, cols int) {
	return b.rows, b.cols
}

func (b *Board) inBounds(c Coordinate) bool {
	return c.Row >= 0 && c.Row < b.rows && c.Col >= 0 && c.Col < b.cols
}

func (b *Board) index(c Coordinate) int {
	return c.Row*b.cols + c.Col
}

func (b *Board) cellAt(c Coordinate) *Cell {
	return &b.cells[b.index(c)]
}

func (b *Board) coordAt(i int) Coordinate {
	return Coordinate{Row: i / b.cols, Col: i % b.cols}
}

// actorSlot returns the ActorSlot for id, creating it lazily. Must be
// called with mu held.
func (b *Board) actorSlot(id string) *ActorSlot {
	if a, ok := b.actors[id]; ok {
		return a
	}
	a := &ActorSlot{ActorID: id}
	b.actors[id] = a
	return a
}

// addControl grants actor exclusive claim on c. Must be called with mu
// held, and only when c is not already controlled by anyone (the caller's
// rule-table dispatch guarantees this).
func (b *Board) addControl(a *ActorSlot, c Coordinate) {
	if owner, ok := b.owners[c]; ok {
		panic(fmt.Sprintf("board: invariant violated: %s already controlled by %q, cannot grant to %q", c, owner, a.ActorID))
	}
	a.Controlled = append(a.Controlled, c)
	b.owners[c] = a.ActorID
}

// removeControl releases actor's claim on c, if held. Must be called with
// mu held.
func (b *Board) removeControl(a *ActorSlot, c Coordinate) {
	for i, cc := range a.Controlled {
		if cc == c {
			a.Controlled = append(a.Controlled[:i], a.Controlled[i+1:]...)
			break
		}
	}
	delete(b.owners, c)
}

// Flip is the sole mutator for interactive play (spec §4.5). It runs the
// cleanup prologue (unless resuming from a wake-up), then dispatches on
// the actor's current controlled count. Out-of-bounds coordinates are
// fatal, distinct from the soft "no card" rules that only apply to
// in-bounds removed cells.
func (b *Board) Flip(row, col int, actorID string) error {
	target := Coordinate{Row: row, Col: col}
	if !b.inBounds(target) {
		return &boarderrors.OutOfBoundsError{Row: row, Col: col, Rows: b.rows, Cols: b.cols}
	}

	b.mu.Lock()
	resumed := false
	for {
		if !resumed {
			b.runCleanupLocked(actorID)
		}
		resumed = false

		actor := b.actorSlot(actorID)
		switch actor.Count() {
		case 0:
			waitCh := b.phaseFirstLocked(actor, target)
			if waitCh == nil {
				b.mu.Unlock()
				return nil
			}
			// Rule 1-D: release the monitor and suspend.
			b.mu.Unlock()
			<-waitCh
			b.mu.Lock()
			resumed = true
		default:
			// Phase C (count==2) cannot reach here: it only exists between
			// Rule 2-D and this actor's next Flip, and the cleanup prologue
			// above always resolves it back to count==0 or 1 before dispatch.
			b.phaseSecondLocked(actor, target)
			b.mu.Unlock()
			return nil
		}
	}
}

// runCleanupLocked executes the deferred effect of actor's previous
// two-card play, if any (spec §4.5 Prologue). Must be called with mu held.
func (b *Board) runCleanupLocked(actorID string) {
	actor := b.actorSlot(actorID)
	if !actor.HasCleanup() {
		return
	}
	p1, p2 := actor.ToCleanUp[0], actor.ToCleanUp[1]
	c1, c2 := b.cellAt(p1), b.cellAt(p2)

	if c1.Matches(*c2) {
		// Rule 3-A: matched removal.
		c1.Content, c1.FaceUp = "", false
		c2.Content, c2.FaceUp = "", false
		b.removeControl(actor, p1)
		b.removeControl(actor, p2)
		b.changes.Publish()
	} else {
		// Rule 3-B: mismatched flip-down, for each cell still present,
		// still face-up, and not currently controlled by anyone.
		changed := false
		for _, p := range [2]Coordinate{p1, p2} {
			c := b.cellAt(p)
			if c.Present() && c.FaceUp {
				if _, controlled := b.owners[p]; !controlled {
					c.FaceUp = false
					changed = true
				}
			}
		}
		if changed {
			b.changes.Publish()
		}
	}

	actor.ToCleanUp = nil
	actor.Controlled = actor.Controlled[:0]
	b.waiters.WakeAll(p1)
	b.waiters.WakeAll(p2)
}

// phaseFirstLocked dispatches the first card of a turn (spec §4.5 Phase A).
// It returns nil when the call can complete immediately, or a channel to
// suspend on for Rule 1-D. Must be called with mu held.
func (b *Board) phaseFirstLocked(actor *ActorSlot, target Coordinate) <-chan struct{} {
	cell := b.cellAt(target)

	switch {
	case !cell.Present():
		// Rule 1-A: no state change.
		return nil
	case !cell.FaceUp:
		// Rule 1-B.
		cell.FaceUp = true
		b.addControl(actor, target)
		b.changes.Publish()
		return nil
	}

	if _, controlled := b.owners[target]; !controlled {
		// Rule 1-C: face-up, uncontrolled. No visible face change, no publish.
		b.addControl(actor, target)
		return nil
	}
	// Rule 1-D: controlled by someone else.
	return b.waiters.Enqueue(target)
}

// phaseSecondLocked dispatches the second card of a turn (spec §4.5 Phase
// B). Must be called with mu held.
func (b *Board) phaseSecondLocked(actor *ActorSlot, target Coordinate) {
	first := actor.Controlled[0]
	cell := b.cellAt(target)

	switch {
	case !cell.Present():
		// Rule 2-A.
		b.releaseFirst(actor, first)
		return
	case b.isControlled(target):
		// Rule 2-B: contended, including self-reselection of first.
		b.releaseFirst(actor, first)
		return
	case !cell.FaceUp:
		// Rule 2-C.
		cell.FaceUp = true
		b.changes.Publish()
	}

	firstCell := b.cellAt(first)
	if firstCell.Matches(*cell) {
		// Rule 2-D: match. Both cards stay "mine" until the next flip.
		b.addControl(actor, target)
		actor.ToCleanUp = []Coordinate{first, target}
		return
	}

	// Rule 2-E: mismatch. Cards remain face-up but uncontrolled.
	actor.ToCleanUp = []Coordinate{first, target}
	b.removeControl(actor, first)
	actor.Controlled = actor.Controlled[:0]
	b.waiters.WakeAll(first)
	b.waiters.WakeAll(target)
}

func (b *Board) isControlled(c Coordinate) bool {
	_, ok := b.owners[c]
	return ok
}

// releaseFirst implements the common tail of Rules 2-A and 2-B: relinquish
// first, wake its waiters, no wait of our own.
func (b *Board) releaseFirst(actor *ActorSlot, first Coordinate) {
	b.removeControl(actor, first)
	actor.Controlled = actor.Controlled[:0]
	b.waiters.WakeAll(first)
}

// Transform applies a content mapping across the board (spec §4.6). The
// monitor is released while f runs so other flips may proceed; the
// resulting substitutions are then applied to the grid as a single atomic
// step (a stronger guarantee than the per-content-value atomicity the
// spec requires as a minimum). If f returns an error, the board is left
// completely unchanged.
func (b *Board) Transform(f func(content string) (string, error)) error {
	b.mu.Lock()
	distinct := make(map[string]struct{})
	for i := range b.cells {
		if b.cells[i].Present() {
			distinct[b.cells[i].Content] = struct{}{}
		}
	}
	b.mu.Unlock()

	mapping := make(map[string]string, len(distinct))
	for x := range distinct {
		y, err := f(x)
		if err != nil {
			return err
		}
		mapping[x] = y
	}

	b.mu.Lock()
	for i := range b.cells {
		c := &b.cells[i]
		if !c.Present() {
			continue
		}
		if y, ok := mapping[c.Content]; ok {
			c.Content = y
		}
	}
	b.changes.Publish()
	b.mu.Unlock()
	return nil
}

// View returns a textual snapshot of the board for actorID (wire format in
// spec §6). An unknown actorID is treated as an actor with zero controlled
// cells; its slot is allocated lazily. Reads never suspend.
func (b *Board) View(actorID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actorSlot(actorID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d", b.rows, b.cols)
	for i := range b.cells {
		sb.WriteByte('\n')
		c := &b.cells[i]
		switch {
		case !c.Present():
			sb.WriteString("none")
		case !c.FaceUp:
			sb.WriteString("down")
		case b.owners[b.coordAt(i)] == actorID:
			sb.WriteString("my ")
			sb.WriteString(c.Content)
		default:
			sb.WriteString("up ")
			sb.WriteString(c.Content)
		}
	}
	return sb.String()
}

// WaitForChange suspends until the next publish-inducing mutation, or
// until ctx is done.
func (b *Board) WaitForChange(ctx context.Context) error {
	return b.changes.WaitForChange(ctx)
}

// FlipAndView performs one Flip then returns actorID's view — the
// "flip(row, col, actorId) -> view" operation of spec §6's adapter
// surface. Out-of-bounds coordinates remain fatal.
func (b *Board) FlipAndView(row, col int, actorID string) (string, error) {
	if err := b.Flip(row, col, actorID); err != nil {
		return "", err
	}
	return b.View(actorID), nil
}

// TransformAndView runs Transform, then returns actorID's view. actorID is
// informational only (deployments may log it); it plays no role in the
// substitution itself.
func (b *Board) TransformAndView(actorID string, f func(string) (string, error)) (string, error) {
	if err := b.Transform(f); err != nil {
		return "", err
	}
	return b.View(actorID), nil
}

// WaitForChangeAndView suspends until the next publish, then returns
// actorID's view.
func (b *Board) WaitForChangeAndView(ctx context.Context, actorID string) (string, error) {
	if err := b.WaitForChange(ctx); err != nil {
		return "", err
	}
	return b.View(actorID), nil
}
