package ws

import (
	"context"
	"testing"
	"time"
)

func typersAt(t *testing.T, msgs []OutgoingMessage) []Typer {
	t.Helper()
	ev, ok := lastOfType(msgs, EventTypingUpdate)
	if !ok {
		t.Fatal("no typing:update")
	}
	return ev.Payload.(TypingPayload).Typers
}

func TestTypingBroadcastsFullList(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventTypingStart, RoomID: "lounge"})
	typers := typersAt(t, drain(bob))
	if len(typers) != 1 || typers[0].UserID != "alice" || typers[0].Username != "alice" {
		t.Fatalf("typers = %+v, want [alice]", typers)
	}
	drain(alice)

	env.hub.HandleMessage(context.Background(), bob, IncomingMessage{Type: EventTypingStart, RoomID: "lounge"})
	typers = typersAt(t, drain(alice))
	if len(typers) != 2 {
		t.Fatalf("typers = %+v, want both", typers)
	}
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventTypingStop, RoomID: "lounge"})
	typers = typersAt(t, drain(bob))
	if len(typers) != 1 || typers[0].UserID != "bob" {
		t.Fatalf("typers after stop = %+v, want [bob]", typers)
	}
}

func TestTypingStopWithoutStartIsHarmless(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventTypingStop, RoomID: "lounge"})
	typers := typersAt(t, drain(bob))
	if len(typers) != 0 {
		t.Fatalf("typers = %+v, want empty", typers)
	}
}

func TestTypingIgnoredForUnsubscribedRoom(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("mallory", "mallory"))
	env.rooms.addRoom("lounge", "alice")
	alice := env.connect(t, "alice", "alice")
	mallory := env.connect(t, "mallory", "mallory")
	drain(alice)
	drain(mallory)

	env.hub.HandleMessage(context.Background(), mallory, IncomingMessage{Type: EventTypingStart, RoomID: "lounge"})
	if n := countOfType(drain(alice), EventTypingUpdate); n != 0 {
		t.Fatal("typing from non-subscriber was broadcast")
	}
}

func TestDisconnectPurgesTyping(t *testing.T) {
	env := newTestEnv(t, testUser("alice", "alice"), testUser("bob", "bob"))
	env.rooms.addRoom("lounge", "alice", "bob")
	alice := env.connect(t, "alice", "alice")
	bob := env.connect(t, "bob", "bob")
	drain(alice)
	drain(bob)

	env.hub.HandleMessage(context.Background(), alice, IncomingMessage{Type: EventTypingStart, RoomID: "lounge"})
	drain(bob)

	env.hub.removeClient(alice)
	typers := typersAt(t, drain(bob))
	if len(typers) != 0 {
		t.Fatalf("typers after disconnect = %+v, want empty", typers)
	}
}

func TestTypingTableSweep(t *testing.T) {
	tt := newTypingTable()
	tt.start("lounge", "alice", "alice")
	tt.start("lounge", "bob", "bob")
	tt.start("kitchen", "alice", "alice")

	// Backdate alice everywhere; bob stays fresh.
	tt.mu.Lock()
	for _, room := range tt.rooms {
		if e, ok := room["alice"]; ok {
			e.last = e.last.Add(-time.Minute)
			room["alice"] = e
		}
	}
	tt.mu.Unlock()

	affected := tt.sweep(10 * time.Second)
	if len(affected) != 2 {
		t.Fatalf("affected rooms = %v, want lounge and kitchen", affected)
	}
	if typers := affected["lounge"]; len(typers) != 1 || typers[0].UserID != "bob" {
		t.Fatalf("lounge typers = %+v, want [bob]", typers)
	}
	if typers := affected["kitchen"]; len(typers) != 0 {
		t.Fatalf("kitchen typers = %+v, want empty", typers)
	}

	// A second sweep reports nothing: state is already clean.
	if again := tt.sweep(10 * time.Second); len(again) != 0 {
		t.Fatalf("second sweep affected %v, want nothing", again)
	}
}

func TestTypingPurgeUserTouchesOnlyTheirRooms(t *testing.T) {
	tt := newTypingTable()
	tt.start("lounge", "alice", "alice")
	tt.start("kitchen", "bob", "bob")

	affected := tt.purgeUser("alice")
	if len(affected) != 1 {
		t.Fatalf("affected = %v, want only lounge", affected)
	}
	if typers, ok := affected["lounge"]; !ok || len(typers) != 0 {
		t.Fatalf("lounge typers = %+v, want empty", typers)
	}
}
