package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formalis/backoffice/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_type, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderType, msg.SenderID, msg.Content, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_type, m.sender_id, m.content,
			m.created_at, m.edited_at, m.deleted_at, m.deleted_by, m.read_at,
			COALESCE(u.display_name, 'Système')
		FROM messages m
		LEFT JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderType, &msg.SenderID, &msg.Content,
		&msg.CreatedAt, &msg.EditedAt, &msg.DeletedAt, &msg.DeletedBy, &msg.ReadAt,
		&msg.SenderName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

// ListByConversation returns the full history oldest-first. Soft-deleted rows
// are included; the presentation layer renders them as a placeholder.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_type, m.sender_id, m.content,
			m.created_at, m.edited_at, m.deleted_at, m.deleted_by, m.read_at,
			COALESCE(u.display_name, 'Système')
		FROM messages m
		LEFT JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderType, &msg.SenderID, &msg.Content,
			&msg.CreatedAt, &msg.EditedAt, &msg.DeletedAt, &msg.DeletedBy, &msg.ReadAt,
			&msg.SenderName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	query := `UPDATE messages SET content = $1, edited_at = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, query, content, time.Now(), id)
	return err
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	query := `UPDATE messages SET deleted_at = $1, deleted_by = $2 WHERE id = $3 AND deleted_at IS NULL`
	_, err := r.pool.Exec(ctx, query, time.Now(), deletedBy, id)
	return err
}

// MarkRead stamps read_at on the unread messages authored by the given sender
// types. read_at only ever moves from NULL to a timestamp.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID uuid.UUID, senders []domain.SenderType) error {
	query := `
		UPDATE messages SET read_at = $1
		WHERE conversation_id = $2 AND sender_type = ANY($3) AND read_at IS NULL`
	types := make([]string, len(senders))
	for i, s := range senders {
		types[i] = string(s)
	}
	_, err := r.pool.Exec(ctx, query, time.Now(), conversationID, types)
	return err
}

func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID)
	return err
}
