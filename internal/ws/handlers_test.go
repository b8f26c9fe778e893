package ws

import (
	"context"
	"testing"

	"github.com/brewchat/internal/model"
)

func ackOf(t *testing.T, msgs []OutgoingMessage) AckPayload {
	t.Helper()
	m, ok := lastOfType(msgs, EventAck)
	if !ok {
		t.Fatal("expected an ack")
	}
	return m.Payload.(AckPayload)
}

func TestChatMessageFanout(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")

	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{
		Type:    EventChatMessage,
		Ref:     "r1",
		RoomID:  "lounge",
		Content: "morning brew?",
	})

	aliceMsgs := drain(alice)
	ack := ackOf(t, aliceMsgs)
	if !ack.OK || ack.Ref != "r1" || ack.MessageID == "" {
		t.Fatalf("ack = %+v, want ok with ref r1 and message id", ack)
	}

	// Sender and subscriber both receive the broadcast; the persisted record
	// already carries the sender's own delivery and read marks.
	for _, c := range []*Client{alice, bob} {
		var msgs []OutgoingMessage
		if c == alice {
			msgs = aliceMsgs
		} else {
			msgs = drain(bob)
		}
		ev, ok := lastOfType(msgs, EventNewMessage)
		if !ok {
			t.Fatalf("no chat:new_message at %s", c.userID)
		}
		m := ev.Payload.(*model.Message)
		if m.ID != ack.MessageID || m.Content != "morning brew?" || m.SenderID != "alice" {
			t.Fatalf("broadcast payload = %+v", m)
		}
		if len(m.DeliveredTo) != 1 || m.DeliveredTo[0] != "alice" {
			t.Errorf("deliveredTo = %v, want [alice]", m.DeliveredTo)
		}
		if len(m.ReadBy) != 1 || m.ReadBy[0] != "alice" {
			t.Errorf("readBy = %v, want [alice]", m.ReadBy)
		}
		if m.Sender == nil || m.Sender.Username != "alice" {
			t.Errorf("sender profile missing on broadcast")
		}
	}

	if env.msgs.count() != 1 {
		t.Fatalf("message count = %d, want 1", env.msgs.count())
	}
	if env.rooms.lastMessage["lounge"] != ack.MessageID {
		t.Error("room last message pointer not updated")
	}
}

func TestChatMessageRejectsNonParticipant(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("mallory", "mallory"))
	env.rooms.addRoom("lounge", "alice")

	alice := env.connect(t, "alice", "alice")
	mallory := env.connect(t, "mallory", "mallory")
	drain(alice)
	drain(mallory)

	env.hub.HandleMessage(context.Background(), mallory, IncomingMessage{
		Type:    EventChatMessage,
		Ref:     "r1",
		RoomID:  "lounge",
		Content: "let me in",
	})

	ack := ackOf(t, drain(mallory))
	if ack.OK || ack.Error != "not a participant" {
		t.Fatalf("ack = %+v, want rejection", ack)
	}
	if env.msgs.count() != 0 {
		t.Error("rejected message was persisted")
	}
	if n := countOfType(drain(alice), EventNewMessage); n != 0 {
		t.Error("rejected message was broadcast")
	}
}

func TestChatMessageValidation(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"))
	env.rooms.addRoom("lounge", "alice")
	alice := env.connect(t, "alice", "alice")
	drain(alice)

	long := make([]rune, model.MaxContentLen+1)
	for i := range long {
		long[i] = 'x'
	}

	cases := []struct {
		name string
		msg  IncomingMessage
	}{
		{"empty text", IncomingMessage{Type: EventChatMessage, RoomID: "lounge"}},
		{"over-length text", IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: string(long)}},
		{"text with attachment", IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "hi", FileMeta: &model.FileMeta{URL: "/u/x"}}},
		{"image without attachment", IncomingMessage{Type: EventChatMessage, RoomID: "lounge", ContentType: model.ContentTypeImage}},
		{"unknown content type", IncomingMessage{Type: EventChatMessage, RoomID: "lounge", ContentType: "gif", Content: "x"}},
		{"missing room", IncomingMessage{Type: EventChatMessage, Content: "hi"}},
		{"unknown room", IncomingMessage{Type: EventChatMessage, RoomID: "nope", Content: "hi"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env.hub.HandleMessage(context.Background(), alice, tc.msg)
			ack := ackOf(t, drain(alice))
			if ack.OK {
				t.Fatalf("accepted invalid message %+v", tc.msg)
			}
		})
	}
	if env.msgs.count() != 0 {
		t.Errorf("message count = %d after invalid sends, want 0", env.msgs.count())
	}
}

func TestDeliveredIsRecordedButNeverBroadcast(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "hi"})
	ack := ackOf(t, drain(alice))
	drain(bob)

	env.hub.HandleMessage(context.Background(), bob, IncomingMessage{Type: EventChatDelivered, MessageID: ack.MessageID})

	if !env.msgs.isDelivered(ack.MessageID, "bob") {
		t.Fatal("delivery mark not recorded")
	}
	if got := len(drain(alice)) + len(drain(bob)); got != 0 {
		t.Fatalf("delivery produced %d events, want silence", got)
	}
}

func TestDeliveredRejectsOutsider(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("mallory", "mallory"))
	env.rooms.addRoom("lounge", "alice")
	alice := env.connect(t, "alice", "alice")
	mallory := env.connect(t, "mallory", "mallory")
	drain(alice)
	drain(mallory)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "hi"})
	ack := ackOf(t, drain(alice))

	env.hub.HandleMessage(context.Background(), mallory, IncomingMessage{Type: EventChatDelivered, MessageID: ack.MessageID})
	if env.msgs.isDelivered(ack.MessageID, "mallory") {
		t.Fatal("outsider recorded a delivery mark")
	}
}

func TestReadReceiptFanout(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "hi"})
	ack := ackOf(t, drain(alice))
	drain(bob)

	env.hub.HandleMessage(context.Background(), bob, IncomingMessage{
		Type:       EventChatRead,
		RoomID:     "lounge",
		MessageIDs: []string{ack.MessageID},
	})

	if !env.msgs.isRead(ack.MessageID, "bob") {
		t.Fatal("read mark not recorded")
	}
	for _, c := range []*Client{alice, bob} {
		ev, ok := lastOfType(drain(c), EventReadReceipt)
		if !ok {
			t.Fatalf("no read receipt at %s", c.userID)
		}
		p := ev.Payload.(ReadReceiptPayload)
		if p.ReaderID != "bob" || p.RoomID != "lounge" || len(p.MessageIDs) != 1 {
			t.Fatalf("receipt = %+v", p)
		}
	}
}

func TestReadIgnoresForeignRoomIDs(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	env.rooms.addRoom("private", "alice")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "private", Content: "secret"})
	ack := ackOf(t, drain(alice))

	// Bob is a lounge participant but the message lives elsewhere; a
	// room-scoped mark-read must not touch it.
	env.hub.HandleMessage(context.Background(), bob, IncomingMessage{
		Type:       EventChatRead,
		RoomID:     "lounge",
		MessageIDs: []string{ack.MessageID},
	})
	if env.msgs.isRead(ack.MessageID, "bob") {
		t.Fatal("cross-room read mark recorded")
	}
}

func TestReactionReplaceKeepsOnePerUser(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "hi"})
	ack := ackOf(t, drain(alice))
	drain(bob)

	env.hub.HandleMessage(context.Background(), bob, IncomingMessage{Type: EventChatReaction, Ref: "a", MessageID: ack.MessageID, Emoji: "👍"})
	drain(alice)
	drain(bob)
	env.hub.HandleMessage(context.Background(), bob, IncomingMessage{Type: EventChatReaction, Ref: "b", MessageID: ack.MessageID, Emoji: "❤️"})

	bobMsgs := drain(bob)
	if a := ackOf(t, bobMsgs); !a.OK || a.Ref != "b" {
		t.Fatalf("second reaction ack = %+v", a)
	}

	// Both subscribers receive the full list: exactly one entry, the newer emoji.
	for _, msgs := range [][]OutgoingMessage{drain(alice), bobMsgs} {
		ev, ok := lastOfType(msgs, EventChatReaction)
		if !ok {
			t.Fatal("no reaction broadcast")
		}
		p := ev.Payload.(ReactionPayload)
		if len(p.Reactions) != 1 {
			t.Fatalf("reactions = %+v, want exactly one", p.Reactions)
		}
		if p.Reactions[0].UserID != "bob" || p.Reactions[0].Emoji != "❤️" {
			t.Fatalf("reaction = %+v, want bob's ❤️", p.Reactions[0])
		}
	}
}

func TestReactionRejectsNonParticipant(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("mallory", "mallory"))
	env.rooms.addRoom("lounge", "alice")
	alice := env.connect(t, "alice", "alice")
	mallory := env.connect(t, "mallory", "mallory")
	drain(alice)
	drain(mallory)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "hi"})
	ack := ackOf(t, drain(alice))

	env.hub.HandleMessage(context.Background(), mallory, IncomingMessage{Type: EventChatReaction, Ref: "x", MessageID: ack.MessageID, Emoji: "👍"})

	if a := ackOf(t, drain(mallory)); a.OK {
		t.Fatal("outsider reaction accepted")
	}
	if list, _ := env.reacs.ListByMessage(context.Background(), ack.MessageID); len(list) != 0 {
		t.Fatal("outsider reaction persisted")
	}
	if n := countOfType(drain(alice), EventChatReaction); n != 0 {
		t.Fatal("outsider reaction broadcast")
	}
}

func TestNotificationReachesOnlineNonSubscriber(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("carol", "carol"))
	env.rooms.addRoom("lounge", "alice")

	alice := env.connect(t, "alice", "alice")
	// Carol connects before being added to the room, so her connection is
	// not subscribed to it.
	carol := env.connect(t, "carol", "carol")
	drain(alice)
	drain(carol)
	env.rooms.addRoom("lounge", "alice", "carol")

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventChatMessage, RoomID: "lounge", Content: "fresh pot"})
	ack := ackOf(t, drain(alice))

	carolMsgs := drain(carol)
	if n := countOfType(carolMsgs, EventNewMessage); n != 0 {
		t.Fatal("non-subscriber received the room broadcast")
	}
	ev, ok := lastOfType(carolMsgs, EventNotification)
	if !ok {
		t.Fatal("no notification at online non-subscriber")
	}
	p := ev.Payload.(NotificationPayload)
	if p.RoomID != "lounge" || p.MessageID != ack.MessageID || p.FromUserID != "alice" || p.Preview != "fresh pot" {
		t.Fatalf("notification = %+v", p)
	}
}

func TestUnknownEventType(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"))
	alice := env.connect(t, "alice", "alice")
	drain(alice)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: "chat:teleport"})
	if _, ok := lastOfType(drain(alice), EventError); !ok {
		t.Fatal("unknown event type not rejected")
	}
}
