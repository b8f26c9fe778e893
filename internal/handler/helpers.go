package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/brewchat/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if status >= http.StatusInternalServerError {
		logger.Errorf("http %d: %s", status, msg)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// queryInt reads an integer query parameter clamped to [1, max];
// missing or unparsable values fall back to defaultVal.
func queryInt(r *http.Request, key string, defaultVal, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return defaultVal
	}
	if n > max {
		return max
	}
	return n
}
