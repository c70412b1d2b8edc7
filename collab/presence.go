package collab

import (
	"sort"
	"sync"

	"github.com/NTDKhoa04/bloggin-be/core"
)

// PresenceEntry is one participant in a draft's roster. It mirrors the
// payload sent to clients in active-users and user-joined events and is
// never consulted for authorization.
type PresenceEntry struct {
	ConnID string    `json:"socketId"`
	UserID string    `json:"userId"`
	Role   core.Role `json:"role"`
}

type presenceTracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]PresenceEntry
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{rooms: make(map[string]map[string]PresenceEntry)}
}

func (t *presenceTracker) join(draftID string, e PresenceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[draftID]
	if !ok {
		room = make(map[string]PresenceEntry)
		t.rooms[draftID] = room
	}
	room[e.ConnID] = e
}

// leave removes a connection from the roster and returns how many
// participants remain in the room.
func (t *presenceTracker) leave(draftID, connID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[draftID]
	if !ok {
		return 0
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(t.rooms, draftID)
	}
	return len(room)
}

// roster returns the room's participants ordered by connection id.
func (t *presenceTracker) roster(draftID string) []PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	room := t.rooms[draftID]
	entries := make([]PresenceEntry, 0, len(room))
	for _, e := range room {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ConnID < entries[j].ConnID })
	return entries
}
