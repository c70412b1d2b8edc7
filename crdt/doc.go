// Package crdt provides the replicated-document primitive used by the
// collaboration core. A Doc is a state-based last-writer-wins element map:
// every field carries a Lamport clock and the id of the node that wrote it,
// and merging keeps the entry with the higher clock (node id breaks ties).
// Apply is commutative, associative and idempotent, so concurrent updates
// from any number of peers converge without coordination.
//
// The collaboration core only ever calls New, Apply and Encode; a different
// primitive with the same merge properties can replace this one without
// touching the orchestration layer.
package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Entry is a single replicated field. Deleted entries are kept as
// tombstones so removals survive merges.
type Entry struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Clock   uint64 `json:"clock"`
	Node    string `json:"node"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Update is the wire format exchanged between peers and persisted as the
// full-state snapshot. A full state is just an update containing every entry.
type Update struct {
	Entries []Entry `json:"entries"`
}

// Doc is one replicated document. All methods are safe for concurrent use.
type Doc struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   uint64
}

// New returns an empty document.
func New() *Doc {
	return &Doc{entries: make(map[string]Entry)}
}

// Apply merges an encoded update into the document. The merge is
// transactional: a malformed update returns an error and leaves the
// document exactly as it was.
func (d *Doc) Apply(update []byte) error {
	var u Update
	if err := json.Unmarshal(update, &u); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	for _, e := range u.Entries {
		if e.Key == "" {
			return fmt.Errorf("decode update: entry with empty key")
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range u.Entries {
		d.merge(e)
	}
	return nil
}

// merge keeps the winning entry per key. Caller holds d.mu.
func (d *Doc) merge(e Entry) {
	if e.Clock > d.clock {
		d.clock = e.Clock
	}
	cur, ok := d.entries[e.Key]
	if !ok || e.wins(cur) {
		d.entries[e.Key] = e
	}
}

// wins reports whether e supersedes cur under the LWW ordering.
func (e Entry) wins(cur Entry) bool {
	if e.Clock != cur.Clock {
		return e.Clock > cur.Clock
	}
	return e.Node > cur.Node
}

// Encode returns the full document state as a single update. The output is
// deterministic: two converged documents encode to identical bytes.
func (d *Doc) Encode() []byte {
	d.mu.RLock()
	entries := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	data, err := json.Marshal(Update{Entries: entries})
	if err != nil {
		// Update contains only plain strings and numbers; Marshal cannot fail.
		panic(err)
	}
	return data
}

// Set writes a field locally and returns the encoded update to relay to
// peers. node identifies the writer for tie-breaking.
func (d *Doc) Set(node, key, value string) []byte {
	return d.write(Entry{Key: key, Value: value, Node: node})
}

// Remove tombstones a field locally and returns the encoded update.
func (d *Doc) Remove(node, key string) []byte {
	return d.write(Entry{Key: key, Node: node, Deleted: true})
}

func (d *Doc) write(e Entry) []byte {
	d.mu.Lock()
	d.clock++
	e.Clock = d.clock
	d.merge(e)
	d.mu.Unlock()

	data, err := json.Marshal(Update{Entries: []Entry{e}})
	if err != nil {
		panic(err)
	}
	return data
}

// Get returns the live value of a field. Tombstoned fields read as absent.
func (d *Doc) Get(key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[key]
	if !ok || e.Deleted {
		return "", false
	}
	return e.Value, true
}

// Len returns the number of live fields.
func (d *Doc) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, e := range d.entries {
		if !e.Deleted {
			n++
		}
	}
	return n
}
