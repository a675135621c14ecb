package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/domain"
)

// ConsoleNotifier is the dev stand-in: it just logs what would be sent.
type ConsoleNotifier struct {
	log *zap.Logger
}

func NewConsoleNotifier(log *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (n *ConsoleNotifier) NotifyTrainer(_ context.Context, conv *domain.Conversation, msg *domain.Message) error {
	n.log.Info("trainer notification",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("participant", conv.ParticipantName),
		zap.String("message_id", msg.ID.String()),
	)
	return nil
}
