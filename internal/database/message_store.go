package database

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/nfrund/amruno/internal/domain"
	"github.com/oklog/ulid"
	"github.com/samber/lo"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// MessageStore encapsulates SurrealDB operations for messages.
type MessageStore struct {
	db  *surrealdb.DB
	now func() time.Time
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(db *surrealdb.DB) *MessageStore {
	return &MessageStore{db: db, now: time.Now}
}

type messageRecord struct {
	ID              *models.RecordID      `json:"id,omitempty"`
	SenderMobile    string                `json:"sender_mobile"`
	RecipientMobile string                `json:"recipient_mobile"`
	Content         *string               `json:"content,omitempty"`
	ImageURL        *string               `json:"image_url,omitempty"`
	AudioURL        *string               `json:"audio_url,omitempty"`
	Timestamp       models.CustomDateTime `json:"timestamp"`
	IsRead          bool                  `json:"is_read"`
}

func (r *messageRecord) toDomain() *domain.Message {
	return &domain.Message{
		ID:              recordKey(r.ID),
		SenderMobile:    r.SenderMobile,
		RecipientMobile: r.RecipientMobile,
		Content:         r.Content,
		ImageURL:        r.ImageURL,
		AudioURL:        r.AudioURL,
		Timestamp:       r.Timestamp.Time.UTC(),
		IsRead:          r.IsRead,
	}
}

// session shares the multiplexed client but owns the id generator, so the
// ids one connection produces sort in creation order.
type session struct {
	db      *surrealdb.DB
	now     func() time.Time
	mu      sync.Mutex
	entropy io.Reader
	last    time.Time
}

func (s *MessageStore) OpenSession(ctx context.Context) (domain.MessageSession, error) {
	return &session{
		db:      s.db,
		now:     s.now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// nextID returns a timestamp that never goes backwards within the session
// and a ULID minted from it.
func (s *session) nextID() (time.Time, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts

	id, err := ulid.New(ulid.Timestamp(ts), s.entropy)
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, id.String(), nil
}

func (s *session) CreateMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	ts, id, err := s.nextID()
	if err != nil {
		return nil, NewDBError(err, "failed to generate message id")
	}

	rec := messageRecord{
		SenderMobile:    msg.SenderMobile,
		RecipientMobile: msg.RecipientMobile,
		Content:         msg.Content,
		ImageURL:        msg.ImageURL,
		AudioURL:        msg.AudioURL,
		Timestamp:       models.CustomDateTime{Time: ts},
	}
	created, err := QueryOne[messageRecord](ctx, s.db, "CREATE $id CONTENT $data", map[string]any{
		"id":   models.NewRecordID("message", id),
		"data": rec,
	})
	if err != nil {
		return nil, WrapError(err, "failed to create message")
	}
	if created == nil {
		return nil, NewDBError(ErrQueryFailed, "create message returned no record")
	}
	return created.toDomain(), nil
}

func (s *session) Close() error {
	return nil
}

const pairFilter = `(sender_mobile = $a AND recipient_mobile = $b) OR (sender_mobile = $b AND recipient_mobile = $a)`

func (s *MessageStore) History(ctx context.Context, a, b string) ([]*domain.Message, error) {
	recs, err := Query[messageRecord](ctx, s.db,
		"SELECT * FROM message WHERE "+pairFilter+" ORDER BY timestamp DESC, id DESC",
		map[string]any{"a": a, "b": b})
	if err != nil {
		return nil, WrapError(err, "failed to query history")
	}
	return lo.Map(recs, func(r messageRecord, _ int) *domain.Message { return r.toDomain() }), nil
}

func (s *MessageStore) Partners(ctx context.Context, mobile string) ([]string, error) {
	params := map[string]any{"mobile": mobile}
	sent, err := Query[string](ctx, s.db, "SELECT VALUE recipient_mobile FROM message WHERE sender_mobile = $mobile", params)
	if err != nil {
		return nil, WrapError(err, "failed to query partners")
	}
	received, err := Query[string](ctx, s.db, "SELECT VALUE sender_mobile FROM message WHERE recipient_mobile = $mobile", params)
	if err != nil {
		return nil, WrapError(err, "failed to query partners")
	}
	return lo.Uniq(append(sent, received...)), nil
}

func (s *MessageStore) LastMessage(ctx context.Context, a, b string) (*domain.Message, error) {
	rec, err := QueryOne[messageRecord](ctx, s.db,
		"SELECT * FROM message WHERE "+pairFilter+" ORDER BY timestamp DESC, id DESC",
		map[string]any{"a": a, "b": b})
	if err != nil {
		return nil, WrapError(err, "failed to query last message")
	}
	if rec == nil {
		return nil, nil
	}
	return rec.toDomain(), nil
}

type countRow struct {
	Count int `json:"count"`
}

func (s *MessageStore) UnreadCount(ctx context.Context, recipient, sender string) (int, error) {
	row, err := QueryOne[countRow](ctx, s.db,
		"SELECT count() AS count FROM message WHERE sender_mobile = $sender AND recipient_mobile = $recipient AND is_read = false GROUP ALL",
		map[string]any{"sender": sender, "recipient": recipient})
	if err != nil {
		return 0, WrapError(err, "failed to count unread messages")
	}
	if row == nil {
		return 0, nil
	}
	return row.Count, nil
}

type idRow struct {
	ID *models.RecordID `json:"id"`
}

func (s *MessageStore) MarkRead(ctx context.Context, recipient, sender string) (int, error) {
	rows, err := Query[idRow](ctx, s.db,
		"UPDATE message SET is_read = true WHERE sender_mobile = $sender AND recipient_mobile = $recipient AND is_read = false RETURN id",
		map[string]any{"sender": sender, "recipient": recipient})
	if err != nil {
		return 0, WrapError(err, "failed to mark messages read")
	}
	return len(rows), nil
}
