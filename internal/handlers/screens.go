package handlers

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/gallery/internal/delivery"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/query"
	"github.com/lehigh-university-libraries/gallery/internal/screens"
	"github.com/zeebo/blake3"
)

func (h *Handler) HandleCreateScreen(w http.ResponseWriter, r *http.Request) {
	screen := h.screens.Create()
	slog.Debug("Screen created", "screen", screen.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, map[string]any{
		"id":      screen.ID,
		"created": screen.Created,
	})
}

func (h *Handler) HandleDeleteScreen(w http.ResponseWriter, r *http.Request) {
	if !h.screens.Delete(r.PathValue("id")) {
		h.writeError(w, "Screen not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.getScreenOrError(w, r)
	if !ok {
		return
	}

	filter, err := models.ParseFileType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := query.Options{Text: r.URL.Query().Get("q"), Type: filter}

	view, err := screen.Catalog(r.Context(), h.catalog.Current(), opts, h.loading())
	if err != nil {
		if errors.Is(err, screens.ErrClosed) {
			h.writeError(w, "Screen not found", http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to render catalog: "+err.Error(), http.StatusInternalServerError)
		return
	}

	etag := viewETag(view)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJSON(w, view)
}

// viewETag hashes what a viewer sees: the visible entries and their delivery state.
func viewETag(view screens.View) string {
	hasher := blake3.New()
	for _, item := range view.Entries {
		hasher.Write([]byte(item.Entry.Locator))
		hasher.Write([]byte{0})
		hasher.Write([]byte(item.Entry.Title))
		hasher.Write([]byte{0})
		hasher.Write([]byte(item.State))
		hasher.Write([]byte{'\n'})
	}
	if view.IsLoading {
		hasher.Write([]byte("loading"))
	}
	return `"` + hex.EncodeToString(hasher.Sum(nil)[:16]) + `"`
}

func (h *Handler) HandleViewport(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.getScreenOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Top    int `json:"top"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Top < 0 || request.Height < 0 {
		h.writeError(w, "top and height must not be negative", http.StatusBadRequest)
		return
	}

	flipped, err := screen.Scroll(request.Top, request.Height)
	if err != nil {
		h.writeError(w, "Screen not found", http.StatusNotFound)
		return
	}
	if flipped == nil {
		flipped = []string{}
	}
	h.writeJSON(w, map[string]any{"requested": flipped})
}

func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.getScreenOrError(w, r)
	if !ok {
		return
	}

	src := r.URL.Query().Get("src")
	if src == "" {
		h.writeError(w, "src is required", http.StatusBadRequest)
		return
	}
	c, ok := screen.Controller(src)
	if !ok {
		h.writeError(w, "Media is not rendered on this screen", http.StatusNotFound)
		return
	}

	payload, err := c.Deliver(r.Context(), h.media, src)
	switch {
	case errors.Is(err, delivery.ErrNotRequested):
		h.writeError(w, "Media not requested yet", http.StatusConflict)
		return
	case errors.Is(err, delivery.ErrUnavailable):
		slog.Warn("Media unavailable", "src", src, "err", c.Err())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		if _, err := w.Write([]byte(c.Fallback())); err != nil {
			slog.Error("Unable to write fallback", "err", err)
		}
		return
	case err != nil:
		h.writeError(w, "Failed to deliver media: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(payload.Data); err != nil {
		slog.Error("Unable to write media", "src", src, "err", err)
	}
}
