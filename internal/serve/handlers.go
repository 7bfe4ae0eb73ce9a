package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler assembles the HTTP routes: the built site at the root, health,
// build history, status and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/builds", s.handleBuilds)
	mux.HandleFunc("GET /api/builds/{id}", s.handleBuildByID)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	mux.Handle("/", http.FileServer(http.Dir(s.siteDir())))
	return mux
}

func (s *Server) siteDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen.OutputDir()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	building := s.building
	hasBuild := s.last != nil
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"building":  building,
		"has_build": hasBuild,
		"time":      time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no build yet"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// maxBuildsLimit caps how many history rows one listing request may ask for.
const maxBuildsLimit = 200

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(parsed, maxBuildsLimit)
	}

	records, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list builds", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	// History listing omits the full report payloads.
	for i := range records {
		records[i].Report = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"builds": records})
}

func (s *Server) handleBuildByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.store.GetByBuildID(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load build", "build_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown build"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}
