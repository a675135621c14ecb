package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/formalis/backoffice/internal/domain"
)

// ConversationFilter narrows a session's conversation list. Both fields are
// nil for the admin view, which sees everything.
type ConversationFilter struct {
	Type          *domain.ConversationType
	ParticipantID *uuid.UUID
}

type ConversationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, filter ConversationFilter) ([]domain.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, conversationID uuid.UUID, senders []domain.SenderType) (int, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
	MarkRead(ctx context.Context, conversationID uuid.UUID, senders []domain.SenderType) error
	DeleteByConversation(ctx context.Context, conversationID uuid.UUID) error
}

type AdminRepository interface {
	// HighestRole returns the user's highest administrative role, or nil when
	// the user holds none.
	HighestRole(ctx context.Context, userID uuid.UUID) (*domain.AdminRole, error)
}
