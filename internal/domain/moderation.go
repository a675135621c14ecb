package domain

// Permissions computes whether the viewer may edit or delete the given
// message. The rules:
//
//   - own message, not deleted        → edit + delete
//   - someone else's, superadmin      → delete only
//   - someone else's, not superadmin  → nothing
//   - already soft-deleted            → nothing
func Permissions(viewer Viewer, msg *Message) (canEdit, canDelete bool) {
	if msg.IsDeleted() {
		return false, false
	}
	if msg.IsOwn(viewer.ID) {
		return true, true
	}
	if viewer.IsSuperadmin() {
		return false, true
	}
	return false, false
}

// ShowModerationMenu reports whether the per-message menu is offered at all.
// Hidden while the message is being edited.
func ShowModerationMenu(viewer Viewer, msg *Message, editing bool) bool {
	if editing {
		return false
	}
	canEdit, canDelete := Permissions(viewer, msg)
	return canEdit || canDelete
}
