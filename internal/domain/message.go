package domain

import (
	"time"

	"github.com/google/uuid"
)

type SenderType string

const (
	SenderAdmin     SenderType = "admin"
	SenderFormateur SenderType = "formateur"
	SenderApprenant SenderType = "apprenant"
)

func (t SenderType) IsValid() bool {
	switch t {
	case SenderAdmin, SenderFormateur, SenderApprenant:
		return true
	}
	return false
}

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderType     SenderType `json:"sender_type"`
	SenderID       *uuid.UUID `json:"sender_id,omitempty"` // nil for system sends
	Content        *string    `json:"content,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	DeletedBy      *uuid.UUID `json:"deleted_by,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	// Joined fields
	SenderName string `json:"sender_name,omitempty"`
}

// IsDeleted reports whether the message was soft-deleted. Once true the
// content must never be rendered again.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// IsOwn reports whether the message was authored by the given user.
func (m *Message) IsOwn(userID uuid.UUID) bool {
	return m.SenderID != nil && *m.SenderID == userID
}
