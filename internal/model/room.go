package model

import "time"

type Room struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsDirect      bool      `json:"is_direct"`
	AvatarEmoji   string    `json:"avatar_emoji"`
	CreatedBy     string    `json:"created_by"`
	LastMessageID *string   `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RoomWithLastMessage is the room-list view: the room, its participants
// and the message the last_message_id pointer resolves to.
type RoomWithLastMessage struct {
	Room         Room         `json:"room"`
	Participants []UserPublic `json:"participants"`
	LastMessage  *Message     `json:"last_message,omitempty"`
}
