package server

import (
	"net/http"
	"strconv"
)

// queryInt parses an integer query parameter with a default and bounds.
func queryInt(r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, false
	}
	return v, true
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	n, ok := queryInt(r, "n", 10, 1, 100)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "n must be an integer between 1 and 100", "status_code": http.StatusBadRequest,
		})
		return
	}

	entries, err := s.engine.RecentLogs(n)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err, "", http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     entries,
		"total_count": len(entries),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	offset, okOffset := queryInt(r, "offset", 0, 0, int(^uint(0)>>1))
	limit, okLimit := queryInt(r, "limit", 50, 1, 500)
	if !okOffset || !okLimit {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "offset must be >= 0 and limit between 1 and 500", "status_code": http.StatusBadRequest,
		})
		return
	}

	page, err := s.engine.Logs(offset, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err, "", http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, page)
}
