package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nfrund/amruno/internal/domain"
)

// MessageStore is the SQLite implementation of domain.MessageRepository.
type MessageStore struct {
	db  *DB
	now func() time.Time
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db, now: time.Now}
}

const messageColumns = "id, sender_mobile, recipient_mobile, content, image_url, audio_url, timestamp, is_read"

// session pins one pooled connection for the lifetime of a websocket
// connection.
type session struct {
	conn *sql.Conn
	now  func() time.Time
}

func (s *MessageStore) OpenSession(ctx context.Context) (domain.MessageSession, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &session{conn: conn, now: s.now}, nil
}

func (s *session) CreateMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	ts := s.now().UTC()
	res, err := s.conn.ExecContext(ctx,
		"INSERT INTO messages (sender_mobile, recipient_mobile, content, image_url, audio_url, timestamp, is_read) VALUES (?, ?, ?, ?, ?, ?, 0)",
		msg.SenderMobile, msg.RecipientMobile, msg.Content, msg.ImageURL, msg.AudioURL, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read message id: %w", err)
	}

	return &domain.Message{
		ID:              strconv.FormatInt(id, 10),
		SenderMobile:    msg.SenderMobile,
		RecipientMobile: msg.RecipientMobile,
		Content:         msg.Content,
		ImageURL:        msg.ImageURL,
		AudioURL:        msg.AudioURL,
		Timestamp:       ts,
	}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

func (s *MessageStore) History(ctx context.Context, a, b string) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		WHERE (sender_mobile = ? AND recipient_mobile = ?) OR (sender_mobile = ? AND recipient_mobile = ?)
		ORDER BY timestamp DESC, id DESC`,
		a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *MessageStore) Partners(ctx context.Context, mobile string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipient_mobile FROM messages WHERE sender_mobile = ?
		UNION
		SELECT sender_mobile FROM messages WHERE recipient_mobile = ?`,
		mobile, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	var partners []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *MessageStore) LastMessage(ctx context.Context, a, b string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+` FROM messages
		WHERE (sender_mobile = ? AND recipient_mobile = ?) OR (sender_mobile = ? AND recipient_mobile = ?)
		ORDER BY timestamp DESC, id DESC LIMIT 1`,
		a, b, b, a)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last message: %w", err)
	}
	return m, nil
}

func (s *MessageStore) UnreadCount(ctx context.Context, recipient, sender string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE sender_mobile = ? AND recipient_mobile = ? AND is_read = 0",
		sender, recipient).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, recipient, sender string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET is_read = 1 WHERE sender_mobile = ? AND recipient_mobile = ? AND is_read = 0",
		sender, recipient)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

func scanMessage(sc scanner) (*domain.Message, error) {
	var (
		id                          int64
		m                           domain.Message
		content, imageURL, audioURL sql.NullString
	)
	if err := sc.Scan(&id, &m.SenderMobile, &m.RecipientMobile, &content, &imageURL, &audioURL, &m.Timestamp, &m.IsRead); err != nil {
		return nil, err
	}
	m.ID = strconv.FormatInt(id, 10)
	m.Content = nullable(content)
	m.ImageURL = nullable(imageURL)
	m.AudioURL = nullable(audioURL)
	m.Timestamp = m.Timestamp.UTC()
	return &m, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
