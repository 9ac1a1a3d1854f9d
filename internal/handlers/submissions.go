package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/review"
	"github.com/lehigh-university-libraries/gallery/internal/storage"
	"github.com/lehigh-university-libraries/gallery/internal/uploads"
)

func (h *Handler) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	if h.submitter == nil {
		h.writeError(w, "Submissions are not configured", http.StatusServiceUnavailable)
		return
	}
	token, user, ok := h.currentUserOrError(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxPayload+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, media.MaxPayload+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	err = h.submitter.Submit(r.Context(), token, *user, header.Filename, header.Header.Get("Content-Type"), fileData)
	if err != nil {
		var fnErr *storage.FunctionError
		switch {
		case errors.Is(err, review.ErrNoFile), errors.Is(err, review.ErrFileType), errors.Is(err, review.ErrFileTooLarge):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &fnErr):
			h.writeError(w, "Submission failed: "+fnErr.Message, http.StatusBadGateway)
		default:
			h.writeError(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	slog.Info("Upload submitted for review", "user", user.Username(), "filename", header.Filename)
	h.writeJSON(w, map[string]any{
		"message":  "Submitted for review. We manually review all uploads.",
		"filename": header.Filename,
	})
}

// HandleOwnUploads lists the signed-in user's approved uploads.
func (h *Handler) HandleOwnUploads(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		h.writeError(w, "Storage provider not configured", http.StatusServiceUnavailable)
		return
	}
	_, user, ok := h.currentUserOrError(w, r)
	if !ok {
		return
	}

	username := user.Username()
	urls, err := uploads.OwnUploads(r.Context(), h.uploads, h.cfg.Storage.Namespace, username)
	if err != nil {
		h.writeError(w, "Failed to list uploads: "+err.Error(), http.StatusBadGateway)
		return
	}
	if urls == nil {
		urls = []string{}
	}
	h.writeJSON(w, map[string]any{
		"username": username,
		"uploads":  urls,
	})
}
