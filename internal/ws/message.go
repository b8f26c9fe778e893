package ws

import (
	"time"

	"github.com/brewchat/internal/model"
)

type EventType string

const (
	// client → server
	EventChatMessage   EventType = "chat:message"
	EventChatDelivered EventType = "chat:delivered"
	EventChatRead      EventType = "chat:read"
	EventChatReaction  EventType = "chat:reaction"
	EventTypingStart   EventType = "typing:start"
	EventTypingStop    EventType = "typing:stop"

	// server → client
	EventNewMessage     EventType = "chat:new_message"
	EventReadReceipt    EventType = "chat:read_receipt"
	EventTypingUpdate   EventType = "typing:update"
	EventPresenceUpdate EventType = "presence:update"
	EventNotification   EventType = "notifications:new"
	EventRoomsJoined    EventType = "rooms:joined"
	EventAck            EventType = "ack"
	EventError          EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type EventType `json:"type"`
	// Ref correlates an acknowledged request (chat:message, chat:reaction)
	// with its ack. Opaque to the server.
	Ref    string `json:"ref,omitempty"`
	RoomID string `json:"room_id,omitempty"`

	// For chat:message
	Content     string            `json:"content,omitempty"`
	ContentType model.ContentType `json:"content_type,omitempty"`
	FileMeta    *model.FileMeta   `json:"file_meta,omitempty"`

	// For chat:delivered / chat:reaction
	MessageID string `json:"message_id,omitempty"`

	// For chat:read
	MessageIDs []string `json:"message_ids,omitempty"`

	// For chat:reaction
	Emoji string `json:"emoji,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// AckPayload is the structured result of an acknowledged operation,
// returned to the originating caller only.
type AckPayload struct {
	Ref       string `json:"ref,omitempty"`
	OK        bool   `json:"ok"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReadReceiptPayload is broadcast to room subscribers after a mark-read.
type ReadReceiptPayload struct {
	RoomID     string   `json:"room_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

// ReactionPayload carries the full current reaction list of a message.
type ReactionPayload struct {
	MessageID string           `json:"message_id"`
	RoomID    string           `json:"room_id"`
	Reactions []model.Reaction `json:"reactions"`
}

// Typer is one currently-composing user.
type Typer struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TypingPayload is the complete typer list for a room, not a delta.
type TypingPayload struct {
	RoomID string  `json:"room_id"`
	Typers []Typer `json:"typers"`
}

// PresencePayload is broadcast process-wide on online/offline transitions.
type PresencePayload struct {
	UserID   string    `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// NotificationPayload is the lightweight out-of-room notice sent to a
// participant who is online but not subscribed to the room.
type NotificationPayload struct {
	RoomID     string    `json:"room_id"`
	MessageID  string    `json:"message_id"`
	FromUserID string    `json:"from_user_id"`
	Preview    string    `json:"preview"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomsJoinedPayload tells a fresh connection which rooms it is subscribed to.
type RoomsJoinedPayload struct {
	RoomIDs []string `json:"room_ids"`
}
