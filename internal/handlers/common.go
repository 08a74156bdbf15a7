package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shelfscan/shelfscan/internal/images"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/storage"
)

// Scanner runs the recognition pipeline over one image
type Scanner interface {
	Scan(ctx context.Context, img models.Image) models.ScanOutcome
}

type Handler struct {
	scanner Scanner
	quota   storage.QuotaStore
	fetcher *images.Fetcher
}

// New creates a handler. A nil quota store allows every scan.
func New(scanner Scanner, quota storage.QuotaStore) *Handler {
	return &Handler{
		scanner: scanner,
		quota:   quota,
		fetcher: images.NewFetcher(),
	}
}

// Routes registers the API on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scan", h.HandleScan)
	mux.HandleFunc("/healthcheck", h.HandleHealthcheck)
	return mux
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Warn("Request rejected", "status", code, "reason", message)
	http.Error(w, message, code)
}
