package ws

import (
	"context"

	"github.com/brewchat/internal/model"
)

// The hub talks to persistence through these interfaces; the pgx
// repositories in internal/repository satisfy them.

type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	SetOnline(ctx context.Context, userID string, online bool) error
}

type RoomStore interface {
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetRoomIDsForUser(ctx context.Context, userID string) ([]string, error)
	GetParticipantIDs(ctx context.Context, roomID string) ([]string, error)
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
	SetLastMessage(ctx context.Context, roomID, messageID string) error
}

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	AddDelivered(ctx context.Context, messageID, userID string) error
	AddRead(ctx context.Context, roomID, userID string, messageIDs []string) error
}

type ReactionStore interface {
	Replace(ctx context.Context, messageID, userID, emoji string) error
	ListByMessage(ctx context.Context, messageID string) ([]model.Reaction, error)
}
