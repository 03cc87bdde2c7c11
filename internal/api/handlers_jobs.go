package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/doctran/internal/pipeline"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	u, code, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	if len(bytes.TrimSpace(u.data)) == 0 {
		jsonError(w, "document is empty", http.StatusBadRequest)
		return
	}
	p, err := s.pipelineFor(r, u.filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Reject bad stage names now rather than in a failed job.
	if _, err := s.resolve(p); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(u.filename, p, u.data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"pipeline": p,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	result := job.Result()
	if result == nil {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Doctran-Run-Id", snap.Progress.RunID)
	h.Set("X-Doctran-Failed", strconv.Itoa(snap.Progress.Failed))
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}
