package handlers

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// HandleStatic serves the content root: the static media, tickets, PDFs and links.json.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		http.NotFound(w, r)
		return
	}

	filepath := strings.TrimPrefix(r.URL.Path, "/")
	if filepath == "" {
		filepath = "index.html"
	}

	// Prevent directory traversal attacks
	if strings.Contains(filepath, "..") || !fs.ValidPath(filepath) {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	switch path.Ext(filepath) {
	case ".css":
		w.Header().Set("Content-Type", "text/css")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript")
	case ".html":
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFileFS(w, r, h.content, filepath)
}
