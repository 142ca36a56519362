// Package vault defines how the renamer sees a vault: a tree of files and
// folders that can be listed, looked up and moved, plus the notifications a
// vault emits when items appear or change name.
package vault

import (
	"context"
	"sort"
	"sync"

	"vaultnorm/pkg/types"
)

// Storage is the source of truth for tree state and the only mutator.
type Storage interface {
	// Root returns the folder tree starting at the vault root.
	Root() (*types.Item, error)
	// Files returns every file in the vault in a stable order.
	Files() ([]*types.Item, error)
	// Get returns the item at path, or a FileNotFound error.
	Get(path string) (*types.Item, error)
	// Occupied reports whether path holds an item other than self.
	Occupied(path string, self *types.Item) (bool, error)
	// Move renames item to newPath. It never overwrites an existing item.
	Move(ctx context.Context, item *types.Item, newPath string) error
}

// EventOp is the kind of change a notification reports.
type EventOp int

const (
	Created EventOp = iota
	Renamed
)

func (op EventOp) String() string {
	if op == Renamed {
		return "renamed"
	}
	return "created"
}

// Event is a single tree-change notification.
type Event struct {
	Op      EventOp
	Item    *types.Item
	OldPath string // Renamed only
}

// Notifier delivers tree-change notifications to subscribers.
type Notifier interface {
	// Subscribe registers fn and returns a function that cancels it.
	Subscribe(fn func(Event)) (cancel func())
}

// Subscribers is a small registry that Notifier implementations embed.
type Subscribers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(Event)
}

// Subscribe implements Notifier.
func (s *Subscribers) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Event))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// Emit delivers ev to every subscriber in registration order.
func (s *Subscribers) Emit(ev Event) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
