package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sloppy/nucleireport/internal/inventory"
)

// ErrPairCount is returned when inventories and scans cannot be paired one to
// one.
var ErrPairCount = errors.New("inventory and scan counts must match")

// Pair is one inventory file matched with one scan output file.
type Pair struct {
	Inventory string `yaml:"inventory" json:"inventory"`
	Scan      string `yaml:"scan" json:"scan"`
}

// Pairs matches inventories and scans by position. Both lists must be
// non-empty and of equal length.
func Pairs(inventories, scans []string) ([]Pair, error) {
	if len(inventories) == 0 || len(scans) == 0 {
		return nil, fmt.Errorf("%w: need at least one inventory and one scan", ErrPairCount)
	}
	if len(inventories) != len(scans) {
		return nil, fmt.Errorf("%w: %d inventories, %d scans", ErrPairCount, len(inventories), len(scans))
	}
	out := make([]Pair, len(inventories))
	for i := range inventories {
		out[i] = Pair{Inventory: inventories[i], Scan: scans[i]}
	}
	return out, nil
}

// Session is the active working set of pairs. Removing the last pair that
// references an inventory drops that inventory from the cache.
type Session struct {
	mu    sync.Mutex
	cache *inventory.Cache
	pairs []Pair
}

// NewSession returns an empty session bound to cache, which may be nil.
func NewSession(cache *inventory.Cache) *Session {
	return &Session{cache: cache}
}

// Add appends pairs to the working set.
func (s *Session) Add(pairs ...Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append(s.pairs, pairs...)
}

// Remove drops the pair at index and returns it.
func (s *Session) Remove(index int) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pairs) {
		return Pair{}, fmt.Errorf("pair index %d out of range [0,%d)", index, len(s.pairs))
	}
	removed := s.pairs[index]
	s.pairs = append(s.pairs[:index], s.pairs[index+1:]...)

	if s.cache != nil && !s.referencesLocked(removed.Inventory) {
		s.cache.Invalidate(removed.Inventory)
	}
	return removed, nil
}

// Clear empties the working set and invalidates every cached inventory it
// referenced.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		for _, p := range s.pairs {
			s.cache.Invalidate(p.Inventory)
		}
	}
	s.pairs = nil
}

// Pairs returns a copy of the working set.
func (s *Session) Pairs() []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Len returns the number of pairs in the working set.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs)
}

func (s *Session) referencesLocked(inventoryPath string) bool {
	target := absPath(inventoryPath)
	for _, p := range s.pairs {
		if absPath(p.Inventory) == target {
			return true
		}
	}
	return false
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
