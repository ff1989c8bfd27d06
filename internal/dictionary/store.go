// Package dictionary keeps the words a user allowed, the completion word
// list and hover definitions.
package dictionary

import (
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("grammarls.dictionary")

// Store holds the allowed words. Words are compared case-insensitively.
type Store interface {
	Contains(word string) (bool, error)
	Add(word string) error
	Remove(word string) error
	Words() ([]string, error)
	Close() error
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Allowed adapts a store to a spelling filter. Lookup errors allow nothing.
func Allowed(s Store) func(word string) bool {
	return func(word string) bool {
		ok, err := s.Contains(word)
		if err != nil {
			log.Warningf("lookup %q: %s", word, err.Error())
			return false
		}
		return ok
	}
}

type MemoryStore struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

func NewMemoryStore(words ...string) *MemoryStore {
	s := &MemoryStore{words: map[string]struct{}{}}
	for _, w := range words {
		_ = s.Add(w)
	}
	return s
}

func (s *MemoryStore) Contains(word string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[normalize(word)]
	return ok, nil
}

func (s *MemoryStore) Add(word string) error {
	w := normalize(word)
	if w == "" {
		return ErrEmptyWord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[w] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.words, normalize(word))
	return nil
}

func (s *MemoryStore) Words() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
