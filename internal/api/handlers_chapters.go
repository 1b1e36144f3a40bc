package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lzbgt/saint-cai-crawler/internal/pipeline"
	"github.com/yuin/goldmark"
)

// submitRequest is the body for POST /api/chapters.
type submitRequest struct {
	ChapterID     string            `json:"chapter_id"`
	HTML          string            `json:"html"`
	ImageFiles    map[string]string `json:"image_files"`
	ResolveImages bool              `json:"resolve_images"`
}

func (s *Server) handleSubmitChapter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ChapterID) == "" {
		jsonError(w, "chapter_id is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		jsonError(w, "html is required", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(uuid.NewString(), req.ChapterID, req.HTML, req.ImageFiles, req.ResolveImages)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"chapter_id": job.ChapterID,
		"status":     job.Status,
		"poll_url":   fmt.Sprintf("/api/chapters/%s/status", job.ID),
	})
}

func (s *Server) handleChapterStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     snap.ID,
		"chapter_id": snap.ChapterID,
		"status":     snap.Status,
		"phase":      snap.Phase,
		"progress":   snap.Progress,
	})
}

// handleChapterResult returns the finished chapter. The format query
// parameter selects the representation: json (default) is the structured
// chapter model, markdown the rendered document, html a goldmark preview
// of that markdown.
func (s *Server) handleChapterResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": snap.ID,
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return
	}
	if snap.Status != pipeline.StatusCompleted {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": snap.ID,
			"status": snap.Status,
			"phase":  snap.Phase,
			"error":  "job not completed yet",
		})
		return
	}

	ch, markdown := job.Result()

	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ch)
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(markdown))
	case "html":
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
			jsonError(w, "render html: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	default:
		jsonError(w, "unknown format, expected json, markdown or html", http.StatusBadRequest)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
