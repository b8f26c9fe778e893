package handler

import (
	"net/http"
	"time"

	"github.com/brewchat/internal/logger"
	"github.com/brewchat/internal/middleware"
	"github.com/brewchat/internal/repository"
	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	msgRepo   *repository.MessageRepository
	roomRepo  *repository.RoomRepository
	reactRepo *repository.ReactionRepository
}

func NewMessageHandler(msgRepo *repository.MessageRepository, roomRepo *repository.RoomRepository, reactRepo *repository.ReactionRepository) *MessageHandler {
	return &MessageHandler{msgRepo: msgRepo, roomRepo: roomRepo, reactRepo: reactRepo}
}

// GetRoomMessages returns history newest-first. Cursor pagination:
// ?limit=50&before=<RFC3339 timestamp>.
func (h *MessageHandler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	isMember, err := h.roomRepo.IsParticipant(r.Context(), roomID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check participation")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}

	limit := queryInt(r, "limit", 50, 200)
	var before time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid before cursor")
			return
		}
		before = t
	}

	messages, err := h.msgRepo.ListByRoom(r.Context(), roomID, limit, before)
	if err != nil {
		logger.Errorf("get room messages room=%s: %v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	ids := make([]string, 0, len(messages))
	for i := range messages {
		ids = append(ids, messages[i].ID)
	}
	reactions, err := h.reactRepo.ListByMessages(r.Context(), ids)
	if err != nil {
		// История полезна и без реакций.
		logger.Errorf("get room reactions room=%s: %v", roomID, err)
	} else {
		for i := range messages {
			messages[i].Reactions = reactions[messages[i].ID]
		}
	}
	writeJSON(w, http.StatusOK, messages)
}
