// Package chat implements the conversation queries behind the REST API.
package chat

import (
	"context"
	"fmt"
	"sort"

	"github.com/nfrund/amruno/internal/domain"
	"github.com/samber/lo"
)

// Service answers history, chat-list and read-marker requests.
type Service struct {
	users    domain.UserRepository
	messages domain.MessageRepository
}

// NewService creates a new Service instance.
func NewService(users domain.UserRepository, messages domain.MessageRepository) *Service {
	return &Service{users: users, messages: messages}
}

// History returns the conversation between me and partner, newest first.
// The result is never nil.
func (s *Service) History(ctx context.Context, me, partner string) ([]*domain.Message, error) {
	msgs, err := s.messages.History(ctx, me, partner)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return msgs, nil
}

// Chats lists the registered users me has exchanged messages with, with
// a preview of the last message and the number of messages from them me
// has not read. Most recent conversations come first.
func (s *Service) Chats(ctx context.Context, me string) ([]domain.ChatPartner, error) {
	mobiles, err := s.messages.Partners(ctx, me)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat partners: %w", err)
	}
	mobiles = lo.Without(mobiles, me)

	users, err := s.users.FindByMobiles(ctx, mobiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat partners: %w", err)
	}

	chats := make([]domain.ChatPartner, 0, len(users))
	for _, u := range users {
		entry := domain.ChatPartner{User: *u}

		last, err := s.messages.LastMessage(ctx, me, u.MobileNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to load last message: %w", err)
		}
		if last != nil {
			entry.LastMessage = lo.ToPtr(last.Preview())
			entry.LastMessageTimestamp = lo.ToPtr(last.Timestamp)
		}

		entry.UnreadCount, err = s.messages.UnreadCount(ctx, me, u.MobileNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to count unread messages: %w", err)
		}
		chats = append(chats, entry)
	}

	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i].LastMessageTimestamp, chats[j].LastMessageTimestamp
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	return chats, nil
}

// MarkRead marks every message sender sent to me as read.
func (s *Service) MarkRead(ctx context.Context, me, sender string) (int, error) {
	n, err := s.messages.MarkRead(ctx, me, sender)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return n, nil
}
