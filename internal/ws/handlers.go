package ws

import (
	"context"
	"time"

	"github.com/brewchat/internal/logger"
	"github.com/brewchat/internal/model"
	"github.com/google/uuid"
)

// HandleMessage dispatches incoming WebSocket messages.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventChatMessage:
		h.handleChatMessage(ctx, c, msg)
	case EventChatDelivered:
		h.handleDelivered(ctx, c, msg)
	case EventChatRead:
		h.handleRead(ctx, c, msg)
	case EventChatReaction:
		h.handleReaction(ctx, c, msg)
	case EventTypingStart:
		h.handleTyping(c, msg, true)
	case EventTypingStop:
		h.handleTyping(c, msg, false)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

// ack answers the originating connection only.
func (h *Hub) ack(c *Client, ref, messageID string) {
	h.sendToClient(c, OutgoingMessage{Type: EventAck, Payload: AckPayload{Ref: ref, OK: true, MessageID: messageID}})
}

func (h *Hub) nack(c *Client, ref, reason string) {
	h.sendToClient(c, OutgoingMessage{Type: EventAck, Payload: AckPayload{Ref: ref, OK: false, Error: reason}})
}

// handleChatMessage persists the message and only then fans it out, so a
// subscriber can never see a message that would vanish on reload.
func (h *Hub) handleChatMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleChatMessage", time.Now())()
	if msg.RoomID == "" {
		h.nack(c, msg.Ref, "room_id required")
		return
	}

	contentType := msg.ContentType
	if contentType == "" {
		contentType = model.ContentTypeText
	}

	now := time.Now().UTC()
	m := &model.Message{
		ID:          uuid.New().String(),
		RoomID:      msg.RoomID,
		SenderID:    c.userID,
		Content:     msg.Content,
		ContentType: contentType,
		FileMeta:    msg.FileMeta,
		CreatedAt:   now,
	}
	if err := m.ValidateContent(); err != nil {
		h.nack(c, msg.Ref, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := h.roomStore.GetByID(ctx, msg.RoomID); err != nil {
		h.nack(c, msg.Ref, "room not found")
		return
	}
	isMember, err := h.roomStore.IsParticipant(ctx, msg.RoomID, c.userID)
	if err != nil {
		logger.Errorf("ws check participant room=%s user=%s: %v", msg.RoomID, c.userID, err)
		h.nack(c, msg.Ref, "internal error")
		return
	}
	if !isMember {
		h.nack(c, msg.Ref, "not a participant")
		return
	}

	// Create also records the sender's own delivered/read marks in the same
	// transaction, so deliveredTo and readBy already contain the sender.
	if err := h.messages.Create(ctx, m); err != nil {
		logger.Errorf("ws save message room=%s user=%s: %v", msg.RoomID, c.userID, err)
		h.nack(c, msg.Ref, "failed to save message")
		return
	}
	m.DeliveredTo = []string{c.userID}
	m.ReadBy = []string{c.userID}

	if err := h.roomStore.SetLastMessage(ctx, msg.RoomID, m.ID); err != nil {
		// Room preview goes stale but the message itself is persisted.
		logger.Errorf("ws set last message room=%s: %v", msg.RoomID, err)
	}

	sender, err := h.users.GetByID(ctx, c.userID)
	if err != nil {
		logger.Errorf("ws get sender user=%s: %v", c.userID, err)
	} else {
		pub := sender.ToPublic()
		m.Sender = &pub
	}

	h.broadcastRoom(msg.RoomID, OutgoingMessage{Type: EventNewMessage, Payload: m})

	h.notifyAbsent(ctx, c.userID, m)
	h.ack(c, msg.Ref, m.ID)
}

// notifyAbsent sends a lightweight notice to participants who are connected
// but not subscribed to the room (e.g. joined after connect, pre-resync).
func (h *Hub) notifyAbsent(ctx context.Context, senderID string, m *model.Message) {
	participantIDs, err := h.roomStore.GetParticipantIDs(ctx, m.RoomID)
	if err != nil {
		logger.Errorf("ws get participants room=%s: %v", m.RoomID, err)
		return
	}

	note := OutgoingMessage{Type: EventNotification, Payload: NotificationPayload{
		RoomID:     m.RoomID,
		MessageID:  m.ID,
		FromUserID: senderID,
		Preview:    m.Preview(),
		CreatedAt:  m.CreatedAt,
	}}

	h.mu.RLock()
	targets := make([]*Client, 0, len(participantIDs))
	for _, uid := range participantIDs {
		if uid == senderID {
			continue
		}
		if c := h.sessions[uid]; c != nil {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !h.rooms.isSubscribed(c, m.RoomID) {
			h.sendToClient(c, note)
		}
	}
}

// handleDelivered records the mark and stays silent: delivery state is
// visible in message history, it is never pushed to the room.
func (h *Hub) handleDelivered(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.MessageID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := h.messages.GetByID(ctx, msg.MessageID)
	if err != nil {
		return
	}
	isMember, err := h.roomStore.IsParticipant(ctx, m.RoomID, c.userID)
	if err != nil || !isMember {
		return
	}
	if err := h.messages.AddDelivered(ctx, msg.MessageID, c.userID); err != nil {
		logger.Errorf("ws mark delivered message=%s user=%s: %v", msg.MessageID, c.userID, err)
	}
}

func (h *Hub) handleRead(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleRead", time.Now())()
	if msg.RoomID == "" || len(msg.MessageIDs) == 0 {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "room_id and message_ids required"})
		return
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	isMember, err := h.roomStore.IsParticipant(ctx, msg.RoomID, c.userID)
	if err != nil {
		logger.Errorf("ws check participant room=%s user=%s: %v", msg.RoomID, c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "internal error"})
		return
	}
	if !isMember {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "not a participant"})
		return
	}

	// AddRead is scoped to the room in SQL: IDs from other rooms are ignored
	// rather than rejected.
	if err := h.messages.AddRead(ctx, msg.RoomID, c.userID, msg.MessageIDs); err != nil {
		logger.Errorf("ws mark read room=%s user=%s: %v", msg.RoomID, c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "failed to mark read"})
		return
	}

	h.broadcastRoom(msg.RoomID, OutgoingMessage{Type: EventReadReceipt, Payload: ReadReceiptPayload{
		RoomID:     msg.RoomID,
		ReaderID:   c.userID,
		MessageIDs: msg.MessageIDs,
	}})
}

// handleReaction replaces the user's reaction (one per user per message) and
// broadcasts the full resulting list, not a delta.
func (h *Hub) handleReaction(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleReaction", time.Now())()
	if msg.MessageID == "" || msg.Emoji == "" {
		h.nack(c, msg.Ref, "message_id and emoji required")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := h.messages.GetByID(ctx, msg.MessageID)
	if err != nil {
		h.nack(c, msg.Ref, "message not found")
		return
	}
	isMember, err := h.roomStore.IsParticipant(ctx, m.RoomID, c.userID)
	if err != nil {
		logger.Errorf("ws check participant room=%s user=%s: %v", m.RoomID, c.userID, err)
		h.nack(c, msg.Ref, "internal error")
		return
	}
	if !isMember {
		h.nack(c, msg.Ref, "not a participant")
		return
	}

	if err := h.reactions.Replace(ctx, msg.MessageID, c.userID, msg.Emoji); err != nil {
		logger.Errorf("ws react message=%s user=%s: %v", msg.MessageID, c.userID, err)
		h.nack(c, msg.Ref, "failed to save reaction")
		return
	}

	reactions, err := h.reactions.ListByMessage(ctx, msg.MessageID)
	if err != nil {
		logger.Errorf("ws list reactions message=%s: %v", msg.MessageID, err)
		h.nack(c, msg.Ref, "internal error")
		return
	}

	h.broadcastRoom(m.RoomID, OutgoingMessage{Type: EventChatReaction, Payload: ReactionPayload{
		MessageID: msg.MessageID,
		RoomID:    m.RoomID,
		Reactions: reactions,
	}})
	h.ack(c, msg.Ref, msg.MessageID)
}

// handleTyping never touches the database: subscription state in the room
// table already proves membership.
func (h *Hub) handleTyping(c *Client, msg IncomingMessage, start bool) {
	if msg.RoomID == "" || !h.rooms.isSubscribed(c, msg.RoomID) {
		return
	}

	var typers []Typer
	if start {
		typers = h.typing.start(msg.RoomID, c.userID, c.username)
	} else {
		typers = h.typing.stop(msg.RoomID, c.userID)
	}

	h.broadcastRoom(msg.RoomID, OutgoingMessage{Type: EventTypingUpdate, Payload: TypingPayload{
		RoomID: msg.RoomID,
		Typers: typers,
	}})
}
