package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/repository"
)

type ConversationService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	log         *zap.Logger
}

func NewConversationService(convRepo repository.ConversationRepository, messageRepo repository.MessageRepository, log *zap.Logger) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		log:         log,
	}
}

// List returns a session's conversations newest-created-first, enriched with
// unread counts and last-message previews. The admin view sees every
// conversation; formateur and apprenant views only their own.
func (s *ConversationService) List(ctx context.Context, sessionID uuid.UUID, viewer domain.Viewer) ([]domain.Conversation, error) {
	filter := repository.ConversationFilter{}
	switch viewer.Mode {
	case domain.ViewFormateur:
		t := domain.ConversationFormateur
		id := viewer.ID
		filter.Type = &t
		filter.ParticipantID = &id
	case domain.ViewApprenant:
		t := domain.ConversationApprenant
		id := viewer.ID
		filter.Type = &t
		filter.ParticipantID = &id
	}

	convs, err := s.convRepo.ListBySession(ctx, sessionID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", mapAccessError(err))
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}

	unreadSenders := UnreadSendersFor(viewer.Mode)

	g, gctx := errgroup.WithContext(ctx)
	for i := range convs {
		g.Go(func() error {
			count, err := s.convRepo.CountUnread(gctx, convs[i].ID, unreadSenders)
			if err != nil {
				return err
			}
			convs[i].UnreadCount = count

			last, err := s.convRepo.LastMessage(gctx, convs[i].ID)
			if err != nil {
				return err
			}
			if last != nil {
				convs[i].LastMessage = last.Content
				at := last.CreatedAt
				convs[i].LastMessageAt = &at
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enriching conversations: %w", err)
	}

	return convs, nil
}

// Delete removes a conversation and all of its messages. Messages go first;
// if the conversation row then fails, the whole operation is reported failed
// and nothing is broadcast, so clients keep their last known state.
func (s *ConversationService) Delete(ctx context.Context, conversationID uuid.UUID, viewer domain.Viewer) error {
	if !viewer.CanModerate() {
		return ErrForbidden
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return mapAccessError(err)
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	if err := s.messageRepo.DeleteByConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("deleting conversation messages: %w", mapAccessError(err))
	}
	if err := s.convRepo.Delete(ctx, conversationID); err != nil {
		// Messages are gone but the conversation row is not. Report failure;
		// the caller must not drop the conversation from local state.
		s.log.Error("conversation delete left orphan row",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
		return fmt.Errorf("deleting conversation: %w", mapAccessError(err))
	}
	return nil
}

// UnreadSendersFor returns the sender types counted as "the other side" for a
// view mode. A viewer never counts (or marks) its own role's messages.
func UnreadSendersFor(mode domain.ViewMode) []domain.SenderType {
	if mode == domain.ViewAdmin {
		return []domain.SenderType{domain.SenderFormateur, domain.SenderApprenant}
	}
	return []domain.SenderType{domain.SenderAdmin}
}
