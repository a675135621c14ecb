package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/repository"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT c.id, c.session_id, c.type, c.participant_id, c.created_at,
			COALESCE(u.display_name, 'Groupe')
		FROM conversations c
		LEFT JOIN users u ON c.participant_id = u.id
		WHERE c.id = $1`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.SessionID, &conv.Type, &conv.ParticipantID, &conv.CreatedAt,
		&conv.ParticipantName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conv, err
}

func (r *ConversationRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	query := `
		SELECT c.id, c.session_id, c.type, c.participant_id, c.created_at,
			COALESCE(u.display_name, 'Groupe')
		FROM conversations c
		LEFT JOIN users u ON c.participant_id = u.id
		WHERE c.session_id = $1
			AND ($2::text IS NULL OR c.type = $2)
			AND ($3::uuid IS NULL OR c.participant_id = $3)
		ORDER BY c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, sessionID, filter.Type, filter.ParticipantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.SessionID, &conv.Type, &conv.ParticipantID, &conv.CreatedAt,
			&conv.ParticipantName,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}

func (r *ConversationRepo) CountUnread(ctx context.Context, conversationID uuid.UUID, senders []domain.SenderType) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND sender_type = ANY($2)
			AND read_at IS NULL AND deleted_at IS NULL`
	types := make([]string, len(senders))
	for i, s := range senders {
		types[i] = string(s)
	}
	var count int
	err := r.pool.QueryRow(ctx, query, conversationID, types).Scan(&count)
	return count, err
}

// LastMessage returns the newest non-deleted message of a conversation, or
// nil when there is none.
func (r *ConversationRepo) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_type, m.sender_id, m.content,
			m.created_at, m.edited_at, m.deleted_at, m.deleted_by, m.read_at,
			COALESCE(u.display_name, 'Système')
		FROM messages m
		LEFT JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = $1 AND m.deleted_at IS NULL
		ORDER BY m.created_at DESC
		LIMIT 1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderType, &msg.SenderID, &msg.Content,
		&msg.CreatedAt, &msg.EditedAt, &msg.DeletedAt, &msg.DeletedBy, &msg.ReadAt,
		&msg.SenderName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}
