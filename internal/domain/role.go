package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ViewMode is the role-perspective the messaging UI is rendered under. It is
// passed in by the hosting page, never stored.
type ViewMode string

const (
	ViewAdmin     ViewMode = "admin"
	ViewFormateur ViewMode = "formateur"
	ViewApprenant ViewMode = "apprenant"
)

func (m ViewMode) IsValid() bool {
	switch m {
	case ViewAdmin, ViewFormateur, ViewApprenant:
		return true
	}
	return false
}

// SenderFor maps a view mode to the sender type its messages carry.
func (m ViewMode) SenderFor() SenderType {
	switch m {
	case ViewAdmin:
		return SenderAdmin
	case ViewFormateur:
		return SenderFormateur
	case ViewApprenant:
		return SenderApprenant
	}
	return SenderApprenant
}

// AdminRole is the closed set of administrative roles. Keeping it a tagged
// variant instead of free-form strings makes the moderation switch exhaustive.
type AdminRole int

const (
	RoleAdmin AdminRole = iota
	RoleSuperadmin
)

func (r AdminRole) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSuperadmin:
		return "superadmin"
	}
	return fmt.Sprintf("AdminRole(%d)", int(r))
}

// Label is the badge text shown next to an administrative sender.
func (r AdminRole) Label() string {
	switch r {
	case RoleSuperadmin:
		return "Superadmin"
	case RoleAdmin:
		return "Admin"
	}
	return "Admin"
}

// ParseAdminRole converts a stored role string to its variant.
func ParseAdminRole(s string) (AdminRole, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "superadmin":
		return RoleSuperadmin, nil
	}
	return RoleAdmin, fmt.Errorf("unknown admin role %q", s)
}

// SenderRoleMap caches the highest role per admin sender seen in one loaded
// message set. Rebuilt per conversation load, never persisted.
type SenderRoleMap map[uuid.UUID]AdminRole

// Viewer is the read-only authentication context handed to the messaging
// module: who is looking, under which mode, and with which admin role (nil
// when the viewer holds none).
type Viewer struct {
	ID   uuid.UUID
	Mode ViewMode
	Role *AdminRole
}

// IsSuperadmin reports whether the viewer holds the superadmin role.
func (v Viewer) IsSuperadmin() bool {
	return v.Role != nil && *v.Role == RoleSuperadmin
}

// CanModerate reports whether the viewer may perform conversation-level
// moderation (conversation delete).
func (v Viewer) CanModerate() bool {
	return v.Mode == ViewAdmin && v.Role != nil
}
