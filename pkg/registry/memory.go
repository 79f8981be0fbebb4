package registry

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore keeps bindings in a map.
type MemoryStore struct {
	mu       sync.RWMutex
	bindings map[common.Address]FeedBinding
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bindings: make(map[common.Address]FeedBinding)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, asset common.Address) (FeedBinding, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[asset]
	return b, ok, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, asset common.Address, binding FeedBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[asset] = binding
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.bindings))
	for asset, b := range s.bindings {
		entries = append(entries, Entry{Asset: asset, Binding: b})
	}
	s.mu.RUnlock()

	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Asset.Bytes(), entries[j].Asset.Bytes()) < 0
	})
}
