package batch

import (
	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/record"
)

// Entry is the outcome of a batch read for a single key.
type Entry struct {
	// Key is the key as the node returned it. Its Value is key.NoValue when the
	// node didn't know the key's user value.
	Key     key.Key
	Outcome record.Outcome
}

// ResultMap holds at most one entry per distinct key of a batch read.
type ResultMap struct {
	entries map[key.ID]Entry
	// order holds the distinct requested keys in the order they were first given.
	order []key.ID
}

func newResultMap(keys []key.Key) *ResultMap {
	r := &ResultMap{entries: make(map[key.ID]Entry, len(keys))}
	seen := make(map[key.ID]bool, len(keys))
	for _, k := range keys {
		id := k.ID()
		if !seen[id] {
			seen[id] = true
			r.order = append(r.order, id)
		}
	}
	return r
}

// Len returns the number of keys the map holds an outcome for.
func (r *ResultMap) Len() int { return len(r.entries) }

// Get returns the outcome for k. Keys are matched by namespace, set and digest.
func (r *ResultMap) Get(k key.Key) (record.Outcome, bool) {
	e, ok := r.entries[k.ID()]
	return e.Outcome, ok
}

// Entry returns the entry for k.
func (r *ResultMap) Entry(k key.Key) (Entry, bool) {
	e, ok := r.entries[k.ID()]
	return e, ok
}

// Entries returns every entry in the order its key was first requested.
func (r *ResultMap) Entries() []Entry {
	entries := make([]Entry, 0, len(r.entries))
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok {
			entries = append(entries, e)
		}
	}
	return entries
}
