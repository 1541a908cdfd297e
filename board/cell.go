package board

// Cell is a single mutable grid slot. An empty Content means the cell is
// removed; removal is permanent and a removed cell never regains content
// (global invariant I3).
type Cell struct {
	Content string
	FaceUp  bool
}

// Present reports whether the cell still holds a card.
func (c Cell) Present() bool {
	return c.Content != ""
}

// Matches reports whether two cells are a pair: both present and equal
// content. A removed cell never matches anything, including another
// removed cell.
func (c Cell) Matches(other Cell) bool {
	return c.Present() && other.Present() && c.Content == other.Content
}
