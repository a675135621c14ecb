package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/formalis/backoffice/internal/domain"
)

// SendgridNotifier emails a trainer when an admin message lands in their
// conversation. Callers treat it as fire-and-forget; any error here is
// logged by the caller and never fails the send.
type SendgridNotifier struct {
	client    *sendgrid.Client
	from      *sgmail.Email
	trainerTo func(ctx context.Context, trainerID string) (*sgmail.Email, error)
}

func NewSendgridNotifier(apiKey, fromName, fromAddr string, trainerTo func(ctx context.Context, trainerID string) (*sgmail.Email, error)) *SendgridNotifier {
	return &SendgridNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		from:      sgmail.NewEmail(fromName, fromAddr),
		trainerTo: trainerTo,
	}
}

func (n *SendgridNotifier) NotifyTrainer(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	if conv.ParticipantID == nil {
		return nil
	}
	to, err := n.trainerTo(ctx, conv.ParticipantID.String())
	if err != nil {
		return fmt.Errorf("resolving trainer address: %w", err)
	}

	subject := "Nouveau message de l'équipe pédagogique"
	body := "Vous avez reçu un nouveau message dans votre espace formateur."
	if msg.Content != nil {
		body = fmt.Sprintf("%s\n\n%s", body, *msg.Content)
	}
	mail := sgmail.NewSingleEmail(n.from, subject, to, body, "")

	resp, err := n.client.SendWithContext(ctx, mail)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
