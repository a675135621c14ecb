package view

import (
	"time"

	"github.com/google/uuid"

	"github.com/formalis/backoffice/internal/domain"
)

// DeletedPlaceholder replaces the content of soft-deleted messages. Once a
// message is deleted its original text is never rendered again.
const DeletedPlaceholder = "Message supprimé"

// EditedSuffix annotates edited messages.
const EditedSuffix = "(modifié)"

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Bubble is the render model for a single message row.
type Bubble struct {
	ID         uuid.UUID
	Align      Align
	SenderName string
	Badge      string
	Timestamp  time.Time
	Text       string
	Italic     bool
	Edited     bool

	ShowMenu  bool
	CanEdit   bool
	CanDelete bool
}

// BubbleFor builds the render model for one message under the given viewer.
// editing is the id of the message currently in edit mode, if any.
func BubbleFor(viewer domain.Viewer, msg *domain.Message, roles domain.SenderRoleMap, editing *uuid.UUID) Bubble {
	b := Bubble{
		ID:         msg.ID,
		SenderName: msg.SenderName,
		Badge:      badgeFor(msg, roles),
		Timestamp:  msg.CreatedAt,
	}

	if msg.IsOwn(viewer.ID) {
		b.Align = AlignRight
	}

	if msg.IsDeleted() {
		b.Text = DeletedPlaceholder
		b.Italic = true
		return b
	}

	if msg.Content != nil {
		b.Text = *msg.Content
	}
	b.Edited = msg.EditedAt != nil

	isEditing := editing != nil && *editing == msg.ID
	b.CanEdit, b.CanDelete = domain.Permissions(viewer, msg)
	b.ShowMenu = domain.ShowModerationMenu(viewer, msg, isEditing)
	return b
}

// badgeFor picks the role badge. Admin senders get their resolved highest
// role; unresolved admins fall back to the plain Admin badge.
func badgeFor(msg *domain.Message, roles domain.SenderRoleMap) string {
	switch msg.SenderType {
	case domain.SenderAdmin:
		if msg.SenderID != nil {
			if role, ok := roles[*msg.SenderID]; ok {
				return role.Label()
			}
		}
		return domain.RoleAdmin.Label()
	case domain.SenderFormateur:
		return "Formateur"
	case domain.SenderApprenant:
		return "Apprenant"
	}
	return ""
}

// Bubbles renders the whole open conversation.
func Bubbles(vm *ViewModel) []Bubble {
	msgs := vm.Messages()
	roles := vm.SenderRoles()
	editing := vm.Editing()
	out := make([]Bubble, len(msgs))
	for i := range msgs {
		out[i] = BubbleFor(vm.Viewer(), &msgs[i], roles, editing)
	}
	return out
}
