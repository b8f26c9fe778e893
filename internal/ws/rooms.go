package ws

import "sync"

// roomTable is the room membership router: it maps rooms to the
// connections currently subscribed to them and back. Each room carries
// its own mutex so that two concurrent broadcasts into the same room
// are serialized (every subscriber observes room events in the same
// order) while broadcasts to different rooms do not contend.
//
// Lock order: table.mu before channel.mu, never the reverse.
type roomTable struct {
	mu       sync.RWMutex
	rooms    map[string]*roomChannel
	byClient map[*Client]map[string]struct{}
}

type roomChannel struct {
	mu   sync.Mutex
	subs map[*Client]struct{}
}

func newRoomTable() *roomTable {
	return &roomTable{
		rooms:    make(map[string]*roomChannel),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

func (t *roomTable) subscribe(c *Client, roomIDs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.byClient[c]
	if set == nil {
		set = make(map[string]struct{}, len(roomIDs))
		t.byClient[c] = set
	}
	for _, roomID := range roomIDs {
		ch := t.rooms[roomID]
		if ch == nil {
			ch = &roomChannel{subs: make(map[*Client]struct{})}
			t.rooms[roomID] = ch
		}
		ch.mu.Lock()
		ch.subs[c] = struct{}{}
		ch.mu.Unlock()
		set[roomID] = struct{}{}
	}
}

// unsubscribeAll detaches the connection from every room and returns
// nothing; empty rooms are dropped to keep the table from growing.
func (t *roomTable) unsubscribeAll(c *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for roomID := range t.byClient[c] {
		ch := t.rooms[roomID]
		if ch == nil {
			continue
		}
		ch.mu.Lock()
		delete(ch.subs, c)
		empty := len(ch.subs) == 0
		ch.mu.Unlock()
		if empty {
			delete(t.rooms, roomID)
		}
	}
	delete(t.byClient, c)
}

func (t *roomTable) isSubscribed(c *Client, roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byClient[c][roomID]
	return ok
}

func (t *roomTable) roomIDs(c *Client) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.byClient[c]))
	for roomID := range t.byClient[c] {
		ids = append(ids, roomID)
	}
	return ids
}

// broadcast delivers the event to every currently subscribed connection
// for the room. Sends happen under the room mutex, which fixes the
// per-room delivery order; send itself must never block (the hub's
// buffered-channel send satisfies that).
func (t *roomTable) broadcast(roomID string, msg OutgoingMessage, send func(*Client, OutgoingMessage)) {
	t.mu.RLock()
	ch := t.rooms[roomID]
	t.mu.RUnlock()
	if ch == nil {
		return
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for c := range ch.subs {
		send(c, msg)
	}
}
