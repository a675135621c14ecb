package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/service"
	"github.com/formalis/backoffice/internal/transport/http/middleware"
)

type ConversationHandler struct {
	convService *service.ConversationService
	readTracker *service.ReadTracker
	log         *zap.Logger
}

func NewConversationHandler(convService *service.ConversationService, readTracker *service.ReadTracker, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{convService: convService, readTracker: readTracker, log: log}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid session ID")
		return
	}

	convs, err := h.convService.List(r.Context(), sessionID, viewer)
	if err != nil {
		h.log.Error("list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	if err := h.convService.Delete(r.Context(), convID, viewer); err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot delete this conversation")
		default:
			h.log.Error("delete conversation", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkRead sweeps the other side's unread messages once per activation.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	if err := h.readTracker.MarkRead(r.Context(), convID, viewer.Mode); err != nil {
		h.log.Error("mark read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
