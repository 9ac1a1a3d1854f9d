package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, "Statistics not available", http.StatusServiceUnavailable)
		return
	}
	static := h.catalog.Current().Inputs().Static
	h.writeJSON(w, h.stats.Compute(r.Context(), static))
}

// HandleQR renders a share code for the absolute URL of an entry.
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		h.writeError(w, "src is required", http.StatusBadRequest)
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > maxQRSize {
			h.writeError(w, "size must be between 64 and 1024", http.StatusBadRequest)
			return
		}
		size = n
	}

	png, err := qrcode.Encode(h.cfg.AbsoluteURL(src), qrcode.Medium, size)
	if err != nil {
		h.writeError(w, "Failed to encode QR code: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		slog.Error("Unable to write QR code", "err", err)
	}
}
