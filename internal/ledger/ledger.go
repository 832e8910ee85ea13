// Package ledger remembers which order ids a source has already handled.
package ledger

import (
	"context"
	"slices"
	"strings"
)

// Set is a set of processed order ids.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add ignores blank ids.
func (s Set) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

func (s Set) Has(id string) bool {
	_, ok := s[strings.TrimSpace(id)]
	return ok
}

// Sorted returns the ids in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Store persists a Set.
type Store interface {
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, set Set) error
}
