package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/brewchat/internal/logger"
	"github.com/brewchat/internal/middleware"
	"github.com/brewchat/internal/model"
	"github.com/brewchat/internal/repository"
	"github.com/brewchat/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultRoomEmoji = "☕"

type RoomHandler struct {
	roomRepo *repository.RoomRepository
	userRepo *repository.UserRepository
	msgRepo  *repository.MessageRepository
	hub      *ws.Hub
}

func NewRoomHandler(roomRepo *repository.RoomRepository, userRepo *repository.UserRepository, msgRepo *repository.MessageRepository, hub *ws.Hub) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo, userRepo: userRepo, msgRepo: msgRepo, hub: hub}
}

type CreateRoomRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AvatarEmoji    string   `json:"avatar_emoji"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	currentUserID := middleware.GetUserID(r.Context())
	emoji := req.AvatarEmoji
	if emoji == "" {
		emoji = defaultRoomEmoji
	}
	now := time.Now().UTC()
	room := &model.Room{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		AvatarEmoji: emoji,
		CreatedBy:   currentUserID,
		CreatedAt:   now,
	}
	if err := h.roomRepo.Create(r.Context(), room); err != nil {
		logger.Errorf("create room: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	members := append([]string{currentUserID}, req.ParticipantIDs...)
	seen := make(map[string]struct{}, len(members))
	for _, uid := range members {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		if err := h.roomRepo.AddParticipant(r.Context(), room.ID, uid, now); err != nil {
			logger.Errorf("create room add participant room=%s user=%s: %v", room.ID, uid, err)
			continue
		}
		// Live connections get subscribed right away; everyone else picks
		// the room up on next connect.
		h.hub.JoinRoom(uid, room.ID)
	}

	enriched, err := h.enrichRoom(r.Context(), room)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	writeJSON(w, http.StatusCreated, enriched)
}

type CreateDirectRoomRequest struct {
	UserID string `json:"user_id"`
}

// CreateDirectRoom returns the existing two-person room for the pair or
// creates it. Direct rooms are unique per pair.
func (h *RoomHandler) CreateDirectRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateDirectRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	currentUserID := middleware.GetUserID(r.Context())
	if req.UserID == currentUserID {
		writeError(w, http.StatusBadRequest, "cannot create a direct room with yourself")
		return
	}

	other, err := h.userRepo.GetByID(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	existing, err := h.roomRepo.FindDirectRoom(r.Context(), currentUserID, req.UserID)
	if err == nil {
		enriched, err := h.enrichRoom(r.Context(), existing)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load room")
			return
		}
		writeJSON(w, http.StatusOK, enriched)
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	room := &model.Room{
		ID:          uuid.New().String(),
		Name:        other.Username,
		IsDirect:    true,
		AvatarEmoji: defaultRoomEmoji,
		CreatedBy:   currentUserID,
		CreatedAt:   now,
	}
	if err := h.roomRepo.Create(r.Context(), room); err != nil {
		logger.Errorf("create direct room: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	for _, uid := range []string{currentUserID, req.UserID} {
		if err := h.roomRepo.AddParticipant(r.Context(), room.ID, uid, now); err != nil {
			logger.Errorf("create direct room add participant room=%s user=%s: %v", room.ID, uid, err)
		}
		h.hub.JoinRoom(uid, room.ID)
	}

	enriched, err := h.enrichRoom(r.Context(), room)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	writeJSON(w, http.StatusCreated, enriched)
}

func (h *RoomHandler) GetUserRooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	rooms, err := h.roomRepo.GetUserRooms(ctx, userID)
	if err != nil {
		logger.Errorf("get user rooms user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to get rooms")
		return
	}

	result := make([]model.RoomWithLastMessage, 0, len(rooms))
	for i := range rooms {
		enriched, err := h.enrichRoom(ctx, &rooms[i])
		if err != nil {
			logger.Errorf("enrich room %s: %v", rooms[i].ID, err)
			continue
		}
		result = append(result, *enriched)
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
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

	room, err := h.roomRepo.GetByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get room")
		return
	}
	enriched, err := h.enrichRoom(r.Context(), room)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	writeJSON(w, http.StatusOK, enriched)
}

type AddParticipantsRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
}

func (h *RoomHandler) AddParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	var req AddParticipantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ParticipantIDs) == 0 {
		writeError(w, http.StatusBadRequest, "participant_ids required")
		return
	}

	room, err := h.roomRepo.GetByID(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if room.IsDirect {
		writeError(w, http.StatusBadRequest, "direct rooms are fixed to two participants")
		return
	}
	isMember, err := h.roomRepo.IsParticipant(r.Context(), roomID, userID)
	if err != nil || !isMember {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}

	now := time.Now().UTC()
	for _, uid := range req.ParticipantIDs {
		if _, err := h.userRepo.GetByID(r.Context(), uid); err != nil {
			logger.Errorf("add participant unknown user=%s: %v", uid, err)
			continue
		}
		if err := h.roomRepo.AddParticipant(r.Context(), roomID, uid, now); err != nil {
			logger.Errorf("add participant room=%s user=%s: %v", roomID, uid, err)
			continue
		}
		h.hub.JoinRoom(uid, roomID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) enrichRoom(ctx context.Context, room *model.Room) (*model.RoomWithLastMessage, error) {
	participants, err := h.roomRepo.GetParticipants(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	var lastMsg *model.Message
	if room.LastMessageID != nil {
		m, err := h.msgRepo.GetByID(ctx, *room.LastMessageID)
		if err != nil {
			logger.Errorf("enrichRoom get last message room=%s: %v", room.ID, err)
		} else {
			lastMsg = m
		}
	}

	return &model.RoomWithLastMessage{
		Room:         *room,
		Participants: participants,
		LastMessage:  lastMsg,
	}, nil
}
