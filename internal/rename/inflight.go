package rename

import (
	"sort"
	"sync"
)

// inFlight is the set of paths with a rename in progress. It is the only
// guard against two renames of the same item racing each other.
type inFlight struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{paths: make(map[string]struct{})}
}

func (s *inFlight) has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[p]
	return ok
}

// claim marks src and dst as in flight. It fails, marking nothing, when
// either is already claimed.
func (s *inFlight) claim(src, dst string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[src]; ok {
		return false
	}
	if _, ok := s.paths[dst]; ok {
		return false
	}
	s.paths[src] = struct{}{}
	s.paths[dst] = struct{}{}
	return true
}

func (s *inFlight) release(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paths, p)
}

func (s *inFlight) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
