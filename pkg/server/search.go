package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/search"
)

const maxSearchQueryLength = 200

// queryInt parses an optional positive integer query parameter, returning 0
// when it is absent.
func queryInt(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSONError(w, "missing search query", http.StatusBadRequest)
		return
	}
	if len(q) > maxSearchQueryLength {
		writeJSONError(w, "search query too long", http.StatusBadRequest)
		return
	}
	typ, err := search.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	days, ok := queryInt(r, "days")
	if !ok {
		writeJSONError(w, "days must be a positive integer", http.StatusBadRequest)
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}

	resp, err := s.search.Search(ctx, q, search.Filters{
		Type:   typ,
		GridID: s.gridID(r),
		City:   r.URL.Query().Get("city"),
		Days:   days,
	}, limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "search failed", slog.Any("error", err))
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	writeJSON(w, resp)
}

func (s *Server) handleSearchSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	if limit == 0 {
		limit = 5
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, search.Suggestions(r.URL.Query().Get("q"), limit))
}
