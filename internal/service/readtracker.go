package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/repository"
)

// ReadTracker marks the other side's unread messages as read when a
// conversation becomes active, once per activation. Each mounted messaging
// view owns its own tracker; nothing is shared across views.
type ReadTracker struct {
	messageRepo repository.MessageRepository
	log         *zap.Logger

	// onAdminRead is invoked after an admin-side sweep so unread counters can
	// refresh.
	onAdminRead func()

	mu         sync.Mutex
	lastMarked uuid.UUID
}

func NewReadTracker(messageRepo repository.MessageRepository, log *zap.Logger) *ReadTracker {
	return &ReadTracker{messageRepo: messageRepo, log: log}
}

// SetOnAdminRead registers the unread-counter refresh callback (optional).
func (t *ReadTracker) SetOnAdminRead(fn func()) {
	t.onAdminRead = fn
}

// MarkRead sweeps the conversation's unread messages authored by the other
// side. Calling it again for the same activation is a no-op.
func (t *ReadTracker) MarkRead(ctx context.Context, conversationID uuid.UUID, mode domain.ViewMode) error {
	t.mu.Lock()
	if t.lastMarked == conversationID {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := t.messageRepo.MarkRead(ctx, conversationID, UnreadSendersFor(mode)); err != nil {
		t.log.Warn("mark read failed",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
		return err
	}

	t.mu.Lock()
	t.lastMarked = conversationID
	t.mu.Unlock()

	if mode == domain.ViewAdmin && t.onAdminRead != nil {
		t.onAdminRead()
	}
	return nil
}

// Reset forgets the last marked conversation, e.g. when the view unmounts.
func (t *ReadTracker) Reset() {
	t.mu.Lock()
	t.lastMarked = uuid.Nil
	t.mu.Unlock()
}
