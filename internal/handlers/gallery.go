// internal/handlers/gallery.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/inkguess/inkguess/internal/database"
)

// GalleryHandler lists recently recognized drawings, newest first.
func (s *Server) GalleryHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r); err != nil {
		http.Error(w, "invalid or missing session", http.StatusUnauthorized)
		return
	}
	if !database.Connected() {
		writeFailure(w, "画廊不可用")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := database.ListGalleryEntries(r.Context(), limit)
	if err != nil {
		s.Logger.WithError(err).Error("failed to list gallery")
		writeFailure(w, "画廊查询失败")
		return
	}
	writeSuccess(w, map[string]interface{}{"entries": entries})
}
