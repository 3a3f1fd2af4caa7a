package journal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// RecentPath is where [Handler] is mounted on the HTTP server.
const RecentPath = "/api/transcripts"

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Handler serves the most recent journal entries as a JSON array. The
// optional query parameters "siteId" and "limit" narrow the result.
type Handler struct {
	j Journal
}

// NewHandler returns a Handler reading from j.
func NewHandler(j Journal) *Handler {
	return &Handler{j: j}
}

// ServeHTTP implements [http.Handler].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLimit)
	}

	entries, err := h.j.Recent(r.Context(), q.Get("siteId"), limit)
	if err != nil {
		slog.Warn("journal: recent query failed", "err", err)
		http.Error(w, "journal unavailable", http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Debug("journal: write response", "err", err)
	}
}
