package handler

import (
	"net/http"
	"path/filepath"

	"github.com/brewchat/internal/config"
	"github.com/brewchat/internal/fileserver"
	"github.com/go-chi/chi/v5"
)

type FileHandler struct {
	fileSvc *fileserver.Service
}

func NewFileHandler(cfg *config.Config) *FileHandler {
	return &FileHandler{fileSvc: fileserver.New(cfg.UploadDir, cfg.MaxUploadSize)}
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.fileSvc.Upload(w, r)
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	h.fileSvc.Serve(w, r, filename)
}
