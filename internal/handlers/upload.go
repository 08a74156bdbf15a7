package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shelfscan/shelfscan/internal/storage"
)

const anonymousUser = "anonymous"

// HandleScan accepts a shelf photograph and returns the consolidated book
// list. Only malformed input is rejected; provider failures show up in the
// outcome's diagnostics instead.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	img, bodyUser, err := h.readImage(ctx, w, r)
	if err != nil {
		if isBadRequest(err) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, "Failed to read image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		userID = strings.TrimSpace(bodyUser)
	}
	if userID == "" {
		userID = anonymousUser
	}

	allowed, recorded := h.reserve(ctx, userID)
	if !allowed {
		h.writeError(w, "Daily scan limit reached", http.StatusTooManyRequests)
		return
	}

	outcome := h.scanner.Scan(ctx, img)

	if h.quota != nil && !recorded {
		if err := h.quota.RecordScan(ctx, userID); err != nil {
			slog.Warn("Failed to record scan usage", "user_id", userID, "err", err)
		}
	}

	slog.Info("Scan served",
		"scan_id", outcome.ScanID,
		"user_id", userID,
		"books", len(outcome.Books))
	h.writeJSON(w, outcome)
}

// reserve gates a scan on the quota store. Stores that can reserve atomically
// record the scan up front; recorded tells the caller not to record it again.
// Store errors never block a scan.
func (h *Handler) reserve(ctx context.Context, userID string) (allowed, recorded bool) {
	if h.quota == nil {
		return true, false
	}

	if r, ok := h.quota.(storage.Reserver); ok {
		reserved, err := r.TryRecord(ctx, userID)
		if err != nil {
			slog.Warn("Quota check failed, allowing scan", "user_id", userID, "err", err)
			return true, false
		}
		return reserved, reserved
	}

	allowed, err := h.quota.MayScan(ctx, userID)
	if err != nil {
		slog.Warn("Quota check failed, allowing scan", "user_id", userID, "err", err)
		return true, false
	}
	return allowed, false
}
