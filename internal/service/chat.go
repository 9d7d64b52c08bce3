package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
)

// GetOrCreateConversation возвращает диалог поддержки пользователя, создавая его при первом обращении.
func (s *Service) GetOrCreateConversation(ctx context.Context, user model.User) (*model.Conversation, error) {
	return s.repo.GetOrCreateConversation(ctx, model.Conversation{
		ID:              "conv_" + uuid.NewString(),
		UserID:          user.ID,
		UserName:        user.Name,
		UserEmail:       user.Email,
		LastMessageTime: s.now(),
		Status:          model.ConversationActive,
	})
}

// SendMessage добавляет сообщение в диалог. Сообщения администратора сразу считаются прочитанными.
func (s *Service) SendMessage(ctx context.Context, sender model.User, conversationID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.conversationFor(ctx, sender, conversationID)
	if err != nil {
		return nil, err
	}

	role := model.RoleUser
	if sender.IsAdmin() {
		role = model.RoleAdmin
	}
	msg := model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		SenderRole:     role,
		Content:        content,
		Timestamp:      s.now(),
		Read:           role == model.RoleAdmin,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindMessageSent, UserID: conv.UserID, ConversationID: conv.ID})
	return &msg, nil
}

// MarkMessagesAsRead отмечает прочитанными сообщения собеседника и обнуляет счётчик диалога.
func (s *Service) MarkMessagesAsRead(ctx context.Context, reader model.User, conversationID string) error {
	conv, err := s.conversationFor(ctx, reader, conversationID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkMessagesAsRead(ctx, conv.ID, reader.ID); err != nil {
		return err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindMessagesRead, UserID: conv.UserID, ConversationID: conv.ID})
	return nil
}

// GetMessages возвращает сообщения диалога в порядке отправки.
func (s *Service) GetMessages(ctx context.Context, viewer model.User, conversationID string) ([]model.Message, error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetMessages(ctx, conv.ID)
}

// GetUnreadCount считает непрочитанные сообщения, адресованные пользователю.
func (s *Service) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnreadMessages(ctx, userID)
}

// GetTotalUnreadForAdmin возвращает число непрочитанных сообщений покупателей во всех диалогах.
func (s *Service) GetTotalUnreadForAdmin(ctx context.Context) (int, error) {
	return s.repo.TotalUnreadForAdmin(ctx)
}

// ListConversations возвращает все диалоги, последние по активности первыми.
func (s *Service) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	return s.repo.ListConversations(ctx)
}

func (s *Service) conversationFor(ctx context.Context, u model.User, conversationID string) (*model.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() && conv.UserID != u.ID {
		return nil, ErrForbidden
	}
	return conv, nil
}
