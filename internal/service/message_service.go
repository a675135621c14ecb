package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrForbidden            = errors.New("action not permitted")
)

// Notifier broadcasts change-feed events to subscribers.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyUpdatedMessage(msg *domain.Message)
}

// TrainerNotifier is the best-effort out-of-band side channel pinged when an
// admin writes to a trainer. Failures are logged, never surfaced.
type TrainerNotifier interface {
	NotifyTrainer(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error
}

type MessageService struct {
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	notifier    Notifier
	trainer     TrainerNotifier
	log         *zap.Logger
}

func NewMessageService(messageRepo repository.MessageRepository, convRepo repository.ConversationRepository, log *zap.Logger) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		log:         log,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetTrainerNotifier sets the out-of-band trainer notifier (optional dependency).
func (s *MessageService) SetTrainerNotifier(n TrainerNotifier) {
	s.trainer = n
}

// List returns a conversation's full history oldest-first, soft-deleted rows
// included.
func (s *MessageService) List(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", mapAccessError(err))
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Send persists a new message for the viewer. Content is trimmed and
// whitespace-only sends are rejected before touching the store.
func (s *MessageService) Send(ctx context.Context, conversationID uuid.UUID, viewer domain.Viewer, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, mapAccessError(err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	senderID := viewer.ID
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderType:     viewer.Mode.SenderFor(),
		SenderID:       &senderID,
		Content:        &content,
		CreatedAt:      time.Now(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, mapAccessError(fmt.Errorf("creating message: %w", err))
	}

	// Dohvati sa sender info
	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
	}

	// Admin writing to a trainer pings the out-of-band channel. Best effort:
	// the send already succeeded.
	if s.trainer != nil && viewer.Mode == domain.ViewAdmin && conv.Type == domain.ConversationFormateur {
		go func(conv domain.Conversation, msg domain.Message) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.trainer.NotifyTrainer(ctx, &conv, &msg); err != nil {
				s.log.Warn("trainer notification failed",
					zap.String("conversation_id", conv.ID.String()), zap.Error(err))
			}
		}(*conv, *full)
	}

	return full, nil
}

// Edit replaces a message's content and stamps edited_at. Only the author of
// a non-deleted message may edit it.
func (s *MessageService) Edit(ctx context.Context, messageID uuid.UUID, viewer domain.Viewer, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if canEdit, _ := domain.Permissions(viewer, msg); !canEdit {
		return nil, ErrForbidden
	}

	if err := s.messageRepo.UpdateContent(ctx, messageID, content); err != nil {
		return nil, mapAccessError(fmt.Errorf("updating message: %w", err))
	}

	updated, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyUpdatedMessage(updated)
	}

	return updated, nil
}

// SoftDelete marks a message deleted. Authors may delete their own messages;
// superadmins may delete anyone's. The row is kept.
func (s *MessageService) SoftDelete(ctx context.Context, messageID uuid.UUID, viewer domain.Viewer) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if _, canDelete := domain.Permissions(viewer, msg); !canDelete {
		return nil, ErrForbidden
	}

	if err := s.messageRepo.SoftDelete(ctx, messageID, viewer.ID); err != nil {
		return nil, mapAccessError(err)
	}

	updated, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyUpdatedMessage(updated)
	}

	return updated, nil
}

// mapAccessError converts a row-level-security denial into ErrForbidden so
// callers can surface a distinct "access denied" message.
func mapAccessError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return ErrForbidden
	}
	return err
}
