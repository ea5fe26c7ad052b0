package rulestore

import (
	"iter"
	"slices"
	"sync"
)

// Store is an in-memory registry mapping a user id to an ordered list of
// rules. It is safe for concurrent use; all operations are bounded and do
// no I/O. A Store is an explicit service object so tests can run isolated
// instances side by side.
type Store struct {
	mu       sync.RWMutex
	rules    map[uint32][]string
	count    int
	version  uint64
	maxRules int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRules overrides the global rule capacity.
func WithMaxRules(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRules = n
		}
	}
}

// New creates an empty rule store.
func New(opts ...Option) *Store {
	s := &Store{
		rules:    make(map[uint32][]string),
		maxRules: DefaultMaxRules,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends rule to the list associated with uid. The rule is validated
// first; on any error the store is unchanged.
func (s *Store) Add(uid uint32, rule string) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count >= s.maxRules {
		return ErrCapacityExceeded
	}
	s.rules[uid] = append(s.rules[uid], rule)
	s.count++
	s.version++
	return nil
}

// Remove deletes the first rule under uid that equals rule byte-for-byte.
// Removing an absent rule is a no-op reported via the boolean, not an
// error. A uid whose last rule is removed disappears from the store.
func (s *Store) Remove(uid uint32, rule string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.rules[uid]
	if !ok {
		return false, nil
	}
	idx := slices.Index(list, rule)
	if idx < 0 {
		return false, nil
	}

	list = slices.Delete(list, idx, idx+1)
	if len(list) == 0 {
		delete(s.rules, uid)
	} else {
		s.rules[uid] = list
	}
	s.count--
	s.version++
	return true, nil
}

// Rules returns a copy of the rules for uid in insertion order. An
// unknown uid yields an empty slice.
func (s *Store) Rules(uid uint32) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.rules[uid])
}

// All returns a restartable sequence of (uid, rule) pairs over the whole
// store, uid ascending, insertion order within a uid. The sequence is a
// snapshot; concurrent mutation does not affect an iteration in flight.
func (s *Store) All() iter.Seq2[uint32, string] {
	s.mu.RLock()
	uids := make([]uint32, 0, len(s.rules))
	for uid := range s.rules {
		uids = append(uids, uid)
	}
	slices.Sort(uids)

	snapshot := make([][]string, len(uids))
	for i, uid := range uids {
		snapshot[i] = slices.Clone(s.rules[uid])
	}
	s.mu.RUnlock()

	return func(yield func(uint32, string) bool) {
		for i, uid := range uids {
			for _, rule := range snapshot[i] {
				if !yield(uid, rule) {
					return
				}
			}
		}
	}
}

// Len returns the total number of stored rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Version returns a counter bumped on every successful mutation. Cached
// derivations of the store's contents key on it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
