package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/brewchat/internal/logger"
	"github.com/brewchat/internal/middleware"
	"github.com/brewchat/internal/model"
	"github.com/brewchat/internal/repository"
	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userRepo *repository.UserRepository
}

func NewUserHandler(userRepo *repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// ListUsers returns the user directory for the room-creation picker.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100, 500)
	users, err := h.userRepo.ListAll(r.Context(), limit)
	if err != nil {
		logger.Errorf("list users: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	out := make([]model.UserPublic, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToPublic())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}

type UpdateProfileRequest struct {
	StatusMessage *string `json:"status_message,omitempty"`
	AvatarColor   *string `json:"avatar_color,omitempty"`
}

// UpdateProfile меняет статус и цвет аватара текущего пользователя.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if req.StatusMessage != nil {
		u.StatusMessage = strings.TrimSpace(*req.StatusMessage)
	}
	if req.AvatarColor != nil {
		u.AvatarColor = strings.TrimSpace(*req.AvatarColor)
	}
	if err := h.userRepo.UpdateProfile(r.Context(), u.ID, u.AvatarColor, u.StatusMessage); err != nil {
		logger.Errorf("update profile user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}
