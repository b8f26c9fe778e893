package ws

import (
	"sort"
	"sync"
	"time"
)

// typingTable is the typing aggregator: an ephemeral (room, user) set of
// currently composing users. Entries are removed on explicit stop, on
// disconnect, or (when a TTL is configured) by the hub's sweep.
// Every mutation returns the full recomputed typer list for the room so
// the caller can broadcast complete state rather than deltas.
type typingTable struct {
	mu    sync.Mutex
	rooms map[string]map[string]typingEntry
}

type typingEntry struct {
	username string
	last     time.Time
}

func newTypingTable() *typingTable {
	return &typingTable{rooms: make(map[string]map[string]typingEntry)}
}

func (t *typingTable) start(roomID, userID, username string) []Typer {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[roomID]
	if room == nil {
		room = make(map[string]typingEntry)
		t.rooms[roomID] = room
	}
	room[userID] = typingEntry{username: username, last: time.Now()}
	return typersLocked(room)
}

func (t *typingTable) stop(roomID, userID string) []Typer {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[roomID]
	if room == nil {
		return nil
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(t.rooms, roomID)
		return nil
	}
	return typersLocked(room)
}

// purgeUser removes the user's entries across all rooms and returns the
// recomputed typer list per affected room.
func (t *typingTable) purgeUser(userID string) map[string][]Typer {
	t.mu.Lock()
	defer t.mu.Unlock()
	affected := make(map[string][]Typer)
	for roomID, room := range t.rooms {
		if _, ok := room[userID]; !ok {
			continue
		}
		delete(room, userID)
		if len(room) == 0 {
			delete(t.rooms, roomID)
			affected[roomID] = nil
		} else {
			affected[roomID] = typersLocked(room)
		}
	}
	return affected
}

// sweep expires entries whose last signal is older than ttl.
func (t *typingTable) sweep(ttl time.Duration) map[string][]Typer {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	affected := make(map[string][]Typer)
	for roomID, room := range t.rooms {
		changed := false
		for userID, e := range room {
			if e.last.Before(cutoff) {
				delete(room, userID)
				changed = true
			}
		}
		if !changed {
			continue
		}
		if len(room) == 0 {
			delete(t.rooms, roomID)
			affected[roomID] = nil
		} else {
			affected[roomID] = typersLocked(room)
		}
	}
	return affected
}

// typersLocked snapshots a room's typers; caller holds t.mu.
// Sorted for stable payloads.
func typersLocked(room map[string]typingEntry) []Typer {
	typers := make([]Typer, 0, len(room))
	for userID, e := range room {
		typers = append(typers, Typer{UserID: userID, Username: e.username})
	}
	sort.Slice(typers, func(i, j int) bool { return typers[i].UserID < typers[j].UserID })
	return typers
}
