package pipeline

import (
	"context"
	"sync"

	"github.com/kchou-lab/chatpress/internal/promptanalysis"
)

// joinState is the two-slot barrier for one run: the review branch fills one
// slot, the prompt-analysis branch the other. ready closes when both are in.
type joinState struct {
	mu         sync.Mutex
	review     *reviewBundle
	prompts    []promptanalysis.Suggestion
	hasReview  bool
	hasPrompts bool
	ready      chan struct{}
}

func (s *joinState) offerReview(b *reviewBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.review = b
	s.hasReview = true
	s.maybeReady()
}

func (s *joinState) offerPrompts(p []promptanalysis.Suggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = p
	s.hasPrompts = true
	s.maybeReady()
}

// maybeReady is called with s.mu held.
func (s *joinState) maybeReady() {
	if s.hasReview && s.hasPrompts {
		close(s.ready)
	}
}

// joinTable keys barriers by conversation id so concurrent runs for
// different conversations never interfere.
type joinTable struct {
	mu   sync.Mutex
	runs map[string]*joinState
}

func newJoinTable() *joinTable {
	return &joinTable{runs: make(map[string]*joinState)}
}

// state returns the barrier for id, creating it on first use.
func (t *joinTable) state(id string) *joinState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.runs[id]
	if !ok {
		st = &joinState{ready: make(chan struct{})}
		t.runs[id] = st
	}
	return st
}

// wait blocks until both slots for id are filled, then removes the entry so
// the join is consumed exactly once. A canceled context discards the entry.
func (t *joinTable) wait(ctx context.Context, id string) (*joinState, error) {
	st := t.state(id)
	select {
	case <-st.ready:
		t.discard(id)
		return st, nil
	case <-ctx.Done():
		t.discard(id)
		return nil, ctx.Err()
	}
}

func (t *joinTable) discard(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, id)
}
