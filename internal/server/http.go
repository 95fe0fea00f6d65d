package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/llehouerou/hifz/internal/errmsg"
	"github.com/llehouerou/hifz/internal/quran"
)

func (s *Server) routes() {
	s.mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/state", s.handleState)
	s.mux.HandleFunc("GET /api/v1/chapters/{n}", s.handleChapter)
	s.mux.HandleFunc("POST /api/v1/stop", s.handleStop)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.service.Stop()
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errmsg.Format(errmsg.OpChapterLoad, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	ch, err := s.chapters.Chapter(ctx, n)
	switch {
	case errors.Is(err, quran.ErrNotFound):
		writeError(w, http.StatusNotFound, errmsg.Format(errmsg.OpChapterLoad, err))
		return
	case err != nil:
		s.logger.Warn("chapter lookup failed", "chapter", n, "err", err)
		writeError(w, http.StatusBadGateway, errmsg.Format(errmsg.OpChapterLoad, err))
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
