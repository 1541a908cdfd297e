package board

import (
	"context"
	"sync"
)

// ChangeBus is a one-shot broadcast used to wake observers on any visible
// board mutation. Publish wakes every observer currently waiting and
// drains the subscriber set; observers that arrive after a publish must
// call WaitForChange again to see the next one. Missed changes are never
// buffered or replayed.
type ChangeBus struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewChangeBus returns a ChangeBus with no change yet published.
func NewChangeBus() *ChangeBus {
	return &ChangeBus{ch: make(chan struct{})}
}

// current returns the channel that closes on the next Publish.
func (b *ChangeBus) current() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch
}

// Publish wakes every current observer and replaces the broadcast channel
// so later observers wait for the following publish instead.
func (b *ChangeBus) Publish() {
	b.mu.Lock()
	ch := b.ch
	b.ch = make(chan struct{})
	b.mu.Unlock()
	close(ch)
}

// WaitForChange blocks until the next Publish, or until ctx is done.
func (b *ChangeBus) WaitForChange(ctx context.Context) error {
	ch := b.current()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
