package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeFile  ContentType = "file"
)

// MaxContentLen is the hard cap on text content in runes. Over-length
// content is rejected, never truncated.
const MaxContentLen = 2000

var (
	ErrEmptyContent     = errors.New("message content is empty")
	ErrContentTooLong   = errors.New("message content exceeds maximum length")
	ErrBadContentType   = errors.New("unknown content type")
	ErrAmbiguousVariant = errors.New("message must carry exactly one content variant")
)

// FileMeta describes an attachment for image/file messages. For text
// messages it is nil; the variants are mutually exclusive.
type FileMeta struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
}

type Message struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"room_id"`
	SenderID    string      `json:"sender_id"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	FileMeta    *FileMeta   `json:"file_meta,omitempty"`
	DeliveredTo []string    `json:"delivered_to"`
	ReadBy      []string    `json:"read_by"`
	Reactions   []Reaction  `json:"reactions"`
	CreatedAt   time.Time   `json:"created_at"`
	Sender      *UserPublic `json:"sender,omitempty"`
}

// Reaction is a single (emoji, user) entry. At most one reaction per
// (message, user) pair exists at any time; a new reaction by the same
// user replaces the previous one.
type Reaction struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateContent checks the tagged content variant: exactly one of
// {text, image-reference, file-reference} must be active.
func (m *Message) ValidateContent() error {
	switch m.ContentType {
	case ContentTypeText:
		if m.FileMeta != nil {
			return ErrAmbiguousVariant
		}
		if m.Content == "" {
			return ErrEmptyContent
		}
		if utf8.RuneCountInString(m.Content) > MaxContentLen {
			return ErrContentTooLong
		}
	case ContentTypeImage, ContentTypeFile:
		if m.FileMeta == nil || m.FileMeta.URL == "" {
			return ErrAmbiguousVariant
		}
		if utf8.RuneCountInString(m.Content) > MaxContentLen {
			return ErrContentTooLong
		}
	default:
		return ErrBadContentType
	}
	return nil
}

// Preview returns the short text used by out-of-room notifications.
func (m *Message) Preview() string {
	if m.ContentType != ContentTypeText {
		if m.FileMeta != nil && m.FileMeta.FileName != "" {
			return m.FileMeta.FileName
		}
		return string(m.ContentType)
	}
	const maxPreview = 120
	if utf8.RuneCountInString(m.Content) <= maxPreview {
		return m.Content
	}
	runes := []rune(m.Content)
	return string(runes[:maxPreview-3]) + "..."
}
