package model

import "time"

type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	AvatarColor   string    `json:"avatar_color"`
	StatusMessage string    `json:"status_message"`
	IsOnline      bool      `json:"is_online"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserPublic struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	AvatarColor   string    `json:"avatar_color"`
	StatusMessage string    `json:"status_message"`
	IsOnline      bool      `json:"is_online"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:            u.ID,
		Username:      u.Username,
		AvatarColor:   u.AvatarColor,
		StatusMessage: u.StatusMessage,
		IsOnline:      u.IsOnline,
		LastSeenAt:    u.LastSeenAt,
	}
}
