package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/repository"
)

// RoleHandler exposes the admin-role lookup the frontend uses for sender
// badges next to administrative messages.
type RoleHandler struct {
	adminRepo repository.AdminRepository
	log       *zap.Logger
}

func NewRoleHandler(adminRepo repository.AdminRepository, log *zap.Logger) *RoleHandler {
	return &RoleHandler{adminRepo: adminRepo, log: log}
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	role, err := h.adminRepo.HighestRole(r.Context(), userID)
	if err != nil {
		h.log.Error("admin role lookup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	var out struct {
		Role *string `json:"role"`
	}
	if role != nil {
		s := role.String()
		out.Role = &s
	}
	writeJSON(w, http.StatusOK, out)
}
