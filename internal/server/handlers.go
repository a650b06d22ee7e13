package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	apkerrors "github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/sirupsen/logrus"
)

const contentTypeAPK = "application/vnd.android.package-archive"

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfoStream handles GET /api/download-info-stream/{pkg}
func (s *Server) handleInfoStream(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	events := s.engine.Stream(r.Context(), req, s.opts.EventBuffer)
	writeEvents(w, events)
}

// handleMergedStream handles GET /api/download-merged-stream/{pkg}
func (s *Server) handleMergedStream(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	opts := orchestrator.FetchOptions{Concurrency: s.opts.Concurrency}
	events := s.engine.StreamFetch(r.Context(), req, opts, s.opts.EventBuffer)
	writeEvents(w, events)
}

// handleDownloadTemp handles GET /api/download-temp/{id}
func (s *Server) handleDownloadTemp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.artifacts.Take(id)
	if err != nil {
		if errors.Is(err, apkerrors.ErrArtifactNotFound) {
			respondWithError(w, http.StatusNotFound, "Expired")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentTypeAPK)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(a.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Data); err != nil {
		logger.Debug("Artifact write aborted", logrus.Fields{"id": id, "error": err.Error()})
	}
}

func requestFrom(r *http.Request) orchestrator.Request {
	q := r.URL.Query()
	return orchestrator.Request{
		Package: chi.URLParam(r, "pkg"),
		Device:  q.Get("arch"),
		Region:  q.Get("region"),
		Version: q.Get("version"),
	}
}

func respondWithJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, errorResponse{Error: message})
}
