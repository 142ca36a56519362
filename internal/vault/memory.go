package vault

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vaultnorm/internal/errors"
	"vaultnorm/pkg/types"
)

// MoveRecord is one completed move in a Memory vault.
type MoveRecord struct {
	From string
	To   string
}

// Memory is an in-memory vault. It emits Created and Renamed events like a
// host would, including for moves it performs itself.
type Memory struct {
	Subscribers

	mu       sync.RWMutex
	root     *types.Item
	index    map[string]*types.Item
	moves    []MoveRecord
	moveHook func(item *types.Item, newPath string) error
}

var (
	_ Storage  = (*Memory)(nil)
	_ Notifier = (*Memory)(nil)
)

// NewMemory returns an empty in-memory vault.
func NewMemory() *Memory {
	root := &types.Item{Kind: types.KindFolder}
	return &Memory{
		root:  root,
		index: map[string]*types.Item{"": root},
	}
}

// SetMoveHook installs fn to run before every move. A non-nil error from fn
// fails the move. fn runs without the vault lock held, so it may block.
func (m *Memory) SetMoveHook(fn func(item *types.Item, newPath string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveHook = fn
}

// AddFile creates a file, and any missing parent folders.
func (m *Memory) AddFile(p string, created time.Time) *types.Item {
	return m.add(p, types.KindFile, created)
}

// AddFolder creates a folder, and any missing parent folders.
func (m *Memory) AddFolder(p string) *types.Item {
	return m.add(p, types.KindFolder, time.Time{})
}

func (m *Memory) add(p string, kind types.ItemKind, created time.Time) *types.Item {
	p = NormalizePath(p)

	m.mu.Lock()
	var events []Event
	parent := m.root
	segments := strings.Split(p, "/")
	for i := range segments {
		current := strings.Join(segments[:i+1], "/")
		node, ok := m.index[current]
		if !ok {
			node = &types.Item{Path: current, Kind: types.KindFolder}
			if i == len(segments)-1 {
				node.Kind = kind
				node.Created = created
			}
			m.index[current] = node
			insertChild(parent, node)
			events = append(events, Event{Op: Created, Item: node.Clone()})
		}
		parent = node
	}
	result := parent.Clone()
	m.mu.Unlock()

	for _, ev := range events {
		m.Emit(ev)
	}
	return result
}

// Root implements Storage.
func (m *Memory) Root() (*types.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root.Clone(), nil
}

// Files implements Storage.
func (m *Memory) Files() ([]*types.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var files []*types.Item
	m.root.Walk(func(n *types.Item) {
		if !n.IsFolder() {
			files = append(files, n.Clone())
		}
	})
	return files, nil
}

// Get implements Storage.
func (m *Memory) Get(p string) (*types.Item, error) {
	p = NormalizePath(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.index[p]
	if !ok {
		return nil, errors.NewFileError("item not found", p, errors.FileNotFound, nil)
	}
	return node.Clone(), nil
}

// Occupied implements Storage.
func (m *Memory) Occupied(p string, self *types.Item) (bool, error) {
	p = NormalizePath(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.index[p]
	if !ok {
		return false, nil
	}
	return self == nil || node.Path != self.Path, nil
}

// Move implements Storage.
func (m *Memory) Move(ctx context.Context, item *types.Item, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	hook := m.moveHook
	m.mu.RUnlock()
	if hook != nil {
		if err := hook(item, newPath); err != nil {
			return err
		}
	}

	newPath = NormalizePath(newPath)
	m.mu.Lock()
	node, ok := m.index[item.Path]
	if !ok || node == m.root {
		m.mu.Unlock()
		return errors.NewFileError("item not found", item.Path, errors.FileNotFound, nil)
	}
	oldPath := node.Path
	if newPath == oldPath {
		m.mu.Unlock()
		return nil
	}
	if _, taken := m.index[newPath]; taken {
		m.mu.Unlock()
		return errors.NewFileError("destination already exists", newPath, errors.DestinationExists, nil)
	}
	parentPath := (&types.Item{Path: newPath}).ParentPath()
	parent, ok := m.index[parentPath]
	if !ok || !parent.IsFolder() || IsWithin(parentPath, oldPath) {
		m.mu.Unlock()
		return errors.NewFileError("invalid destination", newPath, errors.InvalidPath, nil)
	}

	if oldParent, ok := m.index[node.ParentPath()]; ok {
		removeChild(oldParent, node)
	}
	node.Walk(func(n *types.Item) {
		delete(m.index, n.Path)
		n.Path = newPath + strings.TrimPrefix(n.Path, oldPath)
		m.index[n.Path] = n
	})
	insertChild(parent, node)
	m.moves = append(m.moves, MoveRecord{From: oldPath, To: newPath})
	moved := node.Clone()
	m.mu.Unlock()

	m.Emit(Event{Op: Renamed, Item: moved, OldPath: oldPath})
	return nil
}

// Moves returns every move performed so far, oldest first.
func (m *Memory) Moves() []MoveRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MoveRecord, len(m.moves))
	copy(out, m.moves)
	return out
}

// Paths returns the path of every item except the root, sorted.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.index))
	for p := range m.index {
		if p != "" {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// insertChild keeps children ordered by name so listings are stable.
func insertChild(parent, child *types.Item) {
	idx := sort.Search(len(parent.Children), func(i int) bool {
		return parent.Children[i].Name() >= child.Name()
	})
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[idx+1:], parent.Children[idx:])
	parent.Children[idx] = child
}

func removeChild(parent, child *types.Item) {
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}
