package ws

import (
	"context"
	"sync"
	"time"

	"github.com/brewchat/internal/logger"
)

const dbTimeout = 5 * time.Second

// Config собирает настройки WebSocket-слоя. Нулевые значения заменяются
// дефолтами в NewHub.
type Config struct {
	MaxConns       int
	SendBufSize    int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
	// TypingTTL > 0 включает фоновую чистку зависших индикаторов набора.
	// 0 — индикатор живёт до явного typing:stop или дисконнекта.
	TypingTTL time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10000
	}
	if cfg.SendBufSize <= 0 {
		cfg.SendBufSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
}

// Hub owns all live connections. One session handle per user: a second
// connection for the same user replaces the first, the replaced handle is
// closed and detached. All registry mutations go through the Run loop's
// register/unregister channels.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Client
	total    int

	cfg    Config
	rooms  *roomTable
	typing *typingTable

	users     UserStore
	roomStore RoomStore
	messages  MessageStore
	reactions ReactionStore

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(users UserStore, roomStore RoomStore, messages MessageStore, reactions ReactionStore, cfg Config) *Hub {
	cfg.applyDefaults()
	return &Hub{
		sessions:   make(map[string]*Client),
		cfg:        cfg,
		rooms:      newRoomTable(),
		typing:     newTypingTable(),
		users:      users,
		roomStore:  roomStore,
		messages:   messages,
		reactions:  reactions,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var sweepC <-chan time.Time
	if h.cfg.TypingTTL > 0 {
		ticker := time.NewTicker(h.cfg.TypingTTL / 2)
		defer ticker.Stop()
		sweepC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-sweepC:
			h.sweepTyping()
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, c := range h.sessions {
		all = append(all, c)
	}
	h.sessions = make(map[string]*Client)
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	old := h.sessions[c.userID]
	if old == nil && h.total >= h.cfg.MaxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.cfg.MaxConns, c.userID)
		c.Close()
		return
	}
	h.sessions[c.userID] = c
	if old == nil {
		h.total++
	}
	h.mu.Unlock()

	// Replaced connection is detached quietly: the user stays online, no
	// presence transition, no typing purge.
	if old != nil {
		h.rooms.unsubscribeAll(old)
		old.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	roomIDs, err := h.roomStore.GetRoomIDsForUser(ctx, c.userID)
	if err != nil {
		logger.Errorf("ws load rooms user=%s: %v", c.userID, err)
		roomIDs = nil
	}
	if len(roomIDs) > 0 {
		h.rooms.subscribe(c, roomIDs...)
	}
	h.sendToClient(c, OutgoingMessage{Type: EventRoomsJoined, Payload: RoomsJoinedPayload{RoomIDs: roomIDs}})

	fresh := old == nil
	if fresh {
		if err := h.users.SetOnline(ctx, c.userID, true); err != nil {
			logger.Errorf("ws set online user=%s: %v", c.userID, err)
		}
		h.broadcastAll(OutgoingMessage{Type: EventPresenceUpdate, Payload: PresencePayload{
			UserID:   c.userID,
			IsOnline: true,
			LastSeen: time.Now().UTC(),
		}})
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	current, ok := h.sessions[c.userID]
	if !ok || current != c {
		// Stale handle of an already-replaced connection; the live session
		// must not be evicted.
		h.mu.Unlock()
		c.Close()
		return
	}
	delete(h.sessions, c.userID)
	h.total--
	h.mu.Unlock()

	h.rooms.unsubscribeAll(c)
	c.Close()

	// Recompute typing state for every room the user was composing in.
	for roomID, typers := range h.typing.purgeUser(c.userID) {
		h.broadcastRoom(roomID, OutgoingMessage{Type: EventTypingUpdate, Payload: TypingPayload{
			RoomID: roomID,
			Typers: typers,
		}})
	}

	// Cleanup continues even if the offline stamp fails.
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := h.users.SetOnline(ctx, c.userID, false); err != nil {
		logger.Errorf("ws set offline user=%s: %v", c.userID, err)
	}
	h.broadcastAll(OutgoingMessage{Type: EventPresenceUpdate, Payload: PresencePayload{
		UserID:   c.userID,
		IsOnline: false,
		LastSeen: time.Now().UTC(),
	}})
}

func (h *Hub) sweepTyping() {
	for roomID, typers := range h.typing.sweep(h.cfg.TypingTTL) {
		h.broadcastRoom(roomID, OutgoingMessage{Type: EventTypingUpdate, Payload: TypingPayload{
			RoomID: roomID,
			Typers: typers,
		}})
	}
}

// JoinRoom subscribes the user's live connection (if any) to a room it was
// added to after connect, and notifies it.
func (h *Hub) JoinRoom(userID, roomID string) {
	h.mu.RLock()
	c := h.sessions[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	h.rooms.subscribe(c, roomID)
	h.sendToClient(c, OutgoingMessage{Type: EventRoomsJoined, Payload: RoomsJoinedPayload{RoomIDs: h.rooms.roomIDs(c)}})
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// broadcastRoom delivers to the room's subscribers under the room mutex,
// which fixes the order every subscriber observes.
func (h *Hub) broadcastRoom(roomID string, msg OutgoingMessage) {
	h.rooms.broadcast(roomID, msg, h.sendToClient)
}

// broadcastAll delivers to every live connection (presence transitions).
func (h *Hub) broadcastAll(msg OutgoingMessage) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToUser(userID string, msg OutgoingMessage) {
	h.mu.RLock()
	c := h.sessions[userID]
	h.mu.RUnlock()
	if c != nil {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
