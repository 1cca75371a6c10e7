package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nfrund/amruno/internal/domain"
	"github.com/samber/lo"
)

// Inbound event kinds.
const (
	KindText   = "chat_text"
	KindImage  = "chat_image"
	KindAudio  = "chat_audio"
	KindTyping = "typing"
)

// Outbound event types.
const (
	TypeChat   = "chat"
	TypeTyping = "typing"
	TypeError  = "error"
)

// ErrInvalidEvent wraps every decoding failure of an inbound frame.
var ErrInvalidEvent = errors.New("invalid event")

var validate = validator.New()

// Event is a decoded inbound frame.
type Event interface {
	Recipient() string
}

// ChatEvent is an event that is persisted before being relayed.
type ChatEvent interface {
	Event
	NewMessage(sender string) domain.NewMessage
}

// TextEvent carries a text message.
type TextEvent struct {
	To      string `validate:"required,max=15"`
	Content string `validate:"required,max=1000"`
}

// ImageEvent carries the URL of an uploaded image.
type ImageEvent struct {
	To  string `validate:"required,max=15"`
	URL string `validate:"required,max=500,http_url"`
}

// AudioEvent carries the URL of an uploaded audio clip.
type AudioEvent struct {
	To  string `validate:"required,max=15"`
	URL string `validate:"required,max=500,http_url"`
}

// TypingEvent tells the recipient that the sender is typing.
type TypingEvent struct {
	To string `validate:"required,max=15"`
}

func (e TextEvent) Recipient() string   { return e.To }
func (e ImageEvent) Recipient() string  { return e.To }
func (e AudioEvent) Recipient() string  { return e.To }
func (e TypingEvent) Recipient() string { return e.To }

func (e TextEvent) NewMessage(sender string) domain.NewMessage {
	return domain.NewMessage{SenderMobile: sender, RecipientMobile: e.To, Content: lo.ToPtr(e.Content)}
}

func (e ImageEvent) NewMessage(sender string) domain.NewMessage {
	return domain.NewMessage{SenderMobile: sender, RecipientMobile: e.To, ImageURL: lo.ToPtr(e.URL)}
}

func (e AudioEvent) NewMessage(sender string) domain.NewMessage {
	return domain.NewMessage{SenderMobile: sender, RecipientMobile: e.To, AudioURL: lo.ToPtr(e.URL)}
}

// inboundFrame is the wire shape shared by all inbound kinds.
type inboundFrame struct {
	Type        string  `json:"type"`
	RecipientID string  `json:"recipient_id"`
	Message     *string `json:"message"`
	URL         *string `json:"url"`
}

// DecodeEvent parses and validates one inbound frame.
func DecodeEvent(data []byte) (Event, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidEvent)
	}

	var ev Event
	switch f.Type {
	case KindText:
		ev = TextEvent{To: f.RecipientID, Content: lo.FromPtr(f.Message)}
	case KindImage:
		ev = ImageEvent{To: f.RecipientID, URL: lo.FromPtr(f.URL)}
	case KindAudio:
		ev = AudioEvent{To: f.RecipientID, URL: lo.FromPtr(f.URL)}
	case KindTyping:
		ev = TypingEvent{To: f.RecipientID}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidEvent)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, f.Type)
	}

	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEvent, describe(err))
	}
	return ev, nil
}

// describe turns validator errors into a short client-facing message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := map[string]string{"To": "recipient_id", "Content": "message", "URL": "url"}
	parts := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		name := lo.ValueOr(fields, fe.Field(), fe.Field())
		if fe.Tag() == "required" {
			return name + " is required"
		}
		return fmt.Sprintf("%s fails %s", name, fe.Tag())
	})
	return strings.Join(parts, ", ")
}

// ChatMessage is the outbound form of a persisted message.
type ChatMessage struct {
	Type            string  `json:"type"`
	ID              string  `json:"id"`
	SenderMobile    string  `json:"sender_mobile"`
	RecipientMobile string  `json:"recipient_mobile"`
	Message         *string `json:"message"`
	Content         *string `json:"content"`
	ImageURL        *string `json:"image_url"`
	AudioURL        *string `json:"audio_url"`
	Timestamp       string  `json:"timestamp"`
	IsRead          bool    `json:"is_read"`
}

// NewChatMessage builds the outbound event for m.
func NewChatMessage(m *domain.Message) ChatMessage {
	return ChatMessage{
		Type:            TypeChat,
		ID:              m.ID,
		SenderMobile:    m.SenderMobile,
		RecipientMobile: m.RecipientMobile,
		Message:         m.Content,
		Content:         m.Content,
		ImageURL:        m.ImageURL,
		AudioURL:        m.AudioURL,
		Timestamp:       m.Timestamp.UTC().Format(time.RFC3339Nano),
		IsRead:          m.IsRead,
	}
}

// TypingNotice is relayed to the recipient of a typing event.
type TypingNotice struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id"`
}

// ErrorNotice reports a rejected inbound frame to its sender.
type ErrorNotice struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
