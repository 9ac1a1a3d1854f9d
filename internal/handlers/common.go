package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/config"
	"github.com/lehigh-university-libraries/gallery/internal/delivery"
	"github.com/lehigh-university-libraries/gallery/internal/identity"
	"github.com/lehigh-university-libraries/gallery/internal/screens"
	"github.com/lehigh-university-libraries/gallery/internal/stats"
	"github.com/lehigh-university-libraries/gallery/internal/uploads"
)

// UserResolver resolves an access token to a user
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*identity.User, error)
}

// Submitter sends a file for review
type Submitter interface {
	Submit(ctx context.Context, token string, user identity.User, filename, contentType string, data []byte) error
}

// Options are the dependencies of the HTTP API
type Options struct {
	Config  config.Config
	Catalog *catalog.Store
	Loading func() bool
	Screens *screens.Store
	Media   delivery.MediaFetcher
	Stats   *stats.Calculator
	Users   UserResolver
	Submit  Submitter
	Uploads uploads.Provider
	Content fs.FS
}

type Handler struct {
	cfg       config.Config
	catalog   *catalog.Store
	loading   func() bool
	screens   *screens.Store
	media     delivery.MediaFetcher
	stats     *stats.Calculator
	users     UserResolver
	submitter Submitter
	uploads   uploads.Provider
	content   fs.FS
}

func New(opts Options) *Handler {
	loading := opts.Loading
	if loading == nil {
		loading = func() bool { return false }
	}
	return &Handler{
		cfg:       opts.Config,
		catalog:   opts.Catalog,
		loading:   loading,
		screens:   opts.Screens,
		media:     opts.Media,
		stats:     opts.Stats,
		users:     opts.Users,
		submitter: opts.Submit,
		uploads:   opts.Uploads,
		content:   opts.Content,
	}
}

// Routes registers the API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/screens", h.HandleCreateScreen)
	mux.HandleFunc("DELETE /api/screens/{id}", h.HandleDeleteScreen)
	mux.HandleFunc("GET /api/screens/{id}/catalog", h.HandleCatalog)
	mux.HandleFunc("POST /api/screens/{id}/viewport", h.HandleViewport)
	mux.HandleFunc("GET /api/screens/{id}/media", h.HandleMedia)
	mux.HandleFunc("GET /api/stats", h.HandleStats)
	mux.HandleFunc("GET /api/qr", h.HandleQR)
	mux.HandleFunc("POST /api/submissions", h.HandleSubmission)
	mux.HandleFunc("GET /api/me/uploads", h.HandleOwnUploads)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("/", h.HandleStatic)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "code", code)
	}
	http.Error(w, message, code)
}

// Screen helpers
func (h *Handler) getScreenOrError(w http.ResponseWriter, r *http.Request) (*screens.Screen, bool) {
	screen, exists := h.screens.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Screen not found", http.StatusNotFound)
		return nil, false
	}
	return screen, true
}

// Identity helpers
func (h *Handler) currentUserOrError(w http.ResponseWriter, r *http.Request) (string, *identity.User, bool) {
	if h.users == nil {
		h.writeError(w, "Identity provider not configured", http.StatusServiceUnavailable)
		return "", nil, false
	}
	token := identity.BearerToken(r)
	user, err := h.users.CurrentUser(r.Context(), token)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			h.writeError(w, "Sign in required", http.StatusUnauthorized)
			return "", nil, false
		}
		h.writeError(w, "Failed to resolve user: "+err.Error(), http.StatusBadGateway)
		return "", nil, false
	}
	return token, user, true
}
