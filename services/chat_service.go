package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"chathub/domain"
	"chathub/errors"
	"chathub/repositories"
)

// ChatService is the write/read surface over the message store shared by
// the live WebSocket path and the history HTTP path.
type ChatService struct {
	log              *slog.Logger
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	maxContentLength int
}

func NewChatService(log *slog.Logger, messages repositories.IMessageRepository,
	users repositories.IUserRepository, maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		messages:         messages,
		users:            users,
		maxContentLength: maxContentLength,
	}
}

// SaveMessage validates, resolves the sender's display name, and persists
// the message with its conversation bookkeeping. Persistence must succeed
// before any acknowledgment or fan-out happens, so callers only publish
// after a nil error. Replays on a known clientMsgID return the stored
// original.
func (s *ChatService) SaveMessage(_ context.Context, senderID, recipientID, content, clientMsgID string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if recipientID == "" {
		return domain.Message{}, errors.ErrMissingRecipient
	}
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}

	senderName, err := s.users.GetDisplayName(senderID)
	if stderrors.Is(err, repositories.ErrUserNotFound) {
		return domain.Message{}, errors.ErrUnknownSender
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("resolving sender name: %w", err)
	}

	message := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: domain.ConversationID(senderID, recipientID),
		SenderID:       senderID,
		SenderName:     senderName,
		RecipientID:    recipientID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		ClientMsgID:    clientMsgID,
	}

	stored, err := s.messages.StoreMessage(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("storing message: %w", err)
	}
	s.log.Info("Message stored", "messageId", stored.ID, "conversationId", stored.ConversationID)
	return stored, nil
}

func (s *ChatService) ListMessages(conversationID string, cursor *string) ([]domain.Message, *string, error) {
	return s.messages.GetMessages(conversationID, cursor)
}

// MarkRead flips the reader's unread messages in the conversation and
// resets their counter. The reader must be a participant of the
// conversation id they claim.
func (s *ChatService) MarkRead(_ context.Context, conversationID, readerID string) (int, error) {
	if _, err := domain.OtherParticipant(conversationID, readerID); err != nil {
		return 0, err
	}
	flipped, err := s.messages.MarkRead(conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("marking read: %w", err)
	}
	if flipped > 0 {
		s.log.Info("Messages marked as read", "conversationId", conversationID, "readerId", readerID, "count", flipped)
	}
	return flipped, nil
}

func (s *ChatService) UnreadTotal(userID string) (int, error) {
	return s.messages.UnreadTotal(userID)
}

func (s *ChatService) ListConversations(userID string) ([]domain.Conversation, error) {
	return s.messages.GetConversations(userID)
}
