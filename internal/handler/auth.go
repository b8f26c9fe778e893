package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/brewchat/internal/auth"
	"github.com/brewchat/internal/config"
	"github.com/brewchat/internal/logger"
	"github.com/brewchat/internal/middleware"
	"github.com/brewchat/internal/model"
	"github.com/brewchat/internal/repository"
	"github.com/brewchat/internal/storage"
	"github.com/google/uuid"
)

// avatarPalette — цвета аватаров по умолчанию (кофейная гамма).
var avatarPalette = []string{
	"#6F4E37", "#A9746E", "#C19A6B", "#8B5E3C", "#D2B48C", "#4B3621", "#B87333", "#967969",
}

type AuthHandler struct {
	userRepo *repository.UserRepository
	sessions storage.SessionStore
	cfg      *config.Config
}

func NewAuthHandler(userRepo *repository.UserRepository, sessions storage.SessionStore, cfg *config.Config) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, sessions: sessions, cfg: cfg}
}

type RegisterRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	StatusMessage string `json:"status_message"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string           `json:"token"`
	SessionID string           `json:"session_id"`
	User      model.UserPublic `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 32 {
		writeError(w, http.StatusBadRequest, "username must be 3-32 characters")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := h.userRepo.GetByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if _, err := h.userRepo.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Errorf("register hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	u := &model.User{
		ID:            uuid.New().String(),
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		AvatarColor:   pickAvatarColor(req.Username),
		StatusMessage: req.StatusMessage,
		LastSeenAt:    now,
		CreatedAt:     now,
	}
	if err := h.userRepo.Create(r.Context(), u); err != nil {
		logger.Errorf("register create user: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	resp, err := h.issueSession(r, u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	// Лимит по имени пользователя защищает от перебора пароля одного аккаунта.
	allowed, err := h.sessions.CheckLoginRateLimit(r.Context(), strings.ToLower(req.Username))
	if err != nil {
		logger.Errorf("login rate limit: %v", err)
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	u, err := h.userRepo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		// Одинаковый ответ для неизвестного имени и неверного пароля.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp, err := h.issueSession(r, u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
}

// Refresh выдаёт новый access-токен по живой refresh-сессии.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	userID, err := h.sessions.GetSession(r.Context(), req.SessionID)
	if err != nil {
		logger.Errorf("refresh get session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	token, err := auth.GenerateToken(u.ID, h.cfg.JWTSecret, h.cfg.TokenTTL)
	if err != nil {
		logger.Errorf("refresh generate token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, SessionID: req.SessionID, User: u.ToPublic()})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if err := h.sessions.DeleteSession(r.Context(), req.SessionID); err != nil {
		logger.Errorf("logout delete session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me возвращает профиль текущего пользователя.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}

func (h *AuthHandler) issueSession(r *http.Request, u *model.User) (*AuthResponse, error) {
	token, err := auth.GenerateToken(u.ID, h.cfg.JWTSecret, h.cfg.TokenTTL)
	if err != nil {
		logger.Errorf("issue token user=%s: %v", u.ID, err)
		return nil, err
	}
	sessionID := uuid.New().String()
	if err := h.sessions.SetSession(r.Context(), sessionID, u.ID); err != nil {
		logger.Errorf("issue session user=%s: %v", u.ID, err)
		return nil, err
	}
	return &AuthResponse{Token: token, SessionID: sessionID, User: u.ToPublic()}, nil
}

// pickAvatarColor детерминированно выбирает цвет из палитры по имени.
func pickAvatarColor(username string) string {
	var sum int
	for _, r := range username {
		sum += int(r)
	}
	return avatarPalette[sum%len(avatarPalette)]
}
