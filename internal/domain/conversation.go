package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversationType string

const (
	ConversationFormateur ConversationType = "formateur"
	ConversationApprenant ConversationType = "apprenant"
	ConversationGroupe    ConversationType = "groupe"
)

func (t ConversationType) IsValid() bool {
	switch t {
	case ConversationFormateur, ConversationApprenant, ConversationGroupe:
		return true
	}
	return false
}

type Conversation struct {
	ID            uuid.UUID        `json:"id"`
	SessionID     uuid.UUID        `json:"session_id"`
	Type          ConversationType `json:"type"`
	ParticipantID *uuid.UUID       `json:"participant_id,omitempty"` // nil for group conversations
	CreatedAt     time.Time        `json:"created_at"`
	// Joined fields for frontend
	ParticipantName string     `json:"participant_name,omitempty"`
	UnreadCount     int        `json:"unread_count"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
}
