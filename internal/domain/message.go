package domain

import (
	"context"
	"time"
)

// Preview labels used when the last message of a conversation carries media.
const (
	ImagePreview = "📷 Image"
	AudioPreview = "🎙️ Audio"
)

// Message is a persisted chat message. Exactly one of Content, ImageURL and
// AudioURL is set.
type Message struct {
	ID              string    `json:"id"`
	SenderMobile    string    `json:"sender_mobile"`
	RecipientMobile string    `json:"recipient_mobile"`
	Content         *string   `json:"content"`
	ImageURL        *string   `json:"image_url"`
	AudioURL        *string   `json:"audio_url"`
	Timestamp       time.Time `json:"timestamp"`
	IsRead          bool      `json:"is_read"`
}

// Preview returns the text shown for this message in a chat list.
func (m *Message) Preview() string {
	switch {
	case m.Content != nil:
		return *m.Content
	case m.ImageURL != nil:
		return ImagePreview
	case m.AudioURL != nil:
		return AudioPreview
	}
	return ""
}

// NewMessage holds the fields needed to persist a message. The store assigns
// the ID and the timestamp.
type NewMessage struct {
	SenderMobile    string  `validate:"required,max=15"`
	RecipientMobile string  `validate:"required,max=15"`
	Content         *string `validate:"omitempty,max=1000"`
	ImageURL        *string `validate:"omitempty,max=500"`
	AudioURL        *string `validate:"omitempty,max=500"`
}

// Validate checks field limits and that exactly one payload field is set.
func (n NewMessage) Validate() error {
	if err := Validate.Struct(n); err != nil {
		return err
	}
	set := 0
	for _, p := range []*string{n.Content, n.ImageURL, n.AudioURL} {
		if p != nil {
			set++
		}
	}
	if set != 1 {
		return ErrInvalidMessage
	}
	return nil
}

// ChatPartner is an entry of a user's conversation list.
type ChatPartner struct {
	User
	LastMessage          *string    `json:"last_message"`
	LastMessageTimestamp *time.Time `json:"last_message_timestamp"`
	UnreadCount          int        `json:"unread_count"`
}

// MessageSession is a store session owned by a single websocket connection.
// It must be closed when the connection ends.
type MessageSession interface {
	CreateMessage(ctx context.Context, msg NewMessage) (*Message, error)
	Close() error
}

// MessageRepository defines the contract for message storage operations.
type MessageRepository interface {
	// OpenSession acquires a session for one connection's writes.
	OpenSession(ctx context.Context) (MessageSession, error)
	// History returns every message exchanged between a and b, newest first.
	History(ctx context.Context, a, b string) ([]*Message, error)
	// Partners returns the distinct numbers mobile has exchanged messages with.
	Partners(ctx context.Context, mobile string) ([]string, error)
	// LastMessage returns the newest message between a and b, or nil if none.
	LastMessage(ctx context.Context, a, b string) (*Message, error)
	// UnreadCount counts unread messages from sender to recipient.
	UnreadCount(ctx context.Context, recipient, sender string) (int, error)
	// MarkRead flags all unread messages from sender to recipient as read and
	// returns how many were updated.
	MarkRead(ctx context.Context, recipient, sender string) (int, error)
}
