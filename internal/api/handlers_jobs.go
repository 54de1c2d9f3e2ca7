package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/scenegest/internal/pipeline"
)

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobResult returns 409 while the job runs and 422 when it failed.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	result, status := job.Result()
	snap := job.Snapshot()
	switch {
	case !status.Finished():
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job not finished",
			"status": status,
			"phase":  snap.Phase,
		})
	case status == pipeline.StatusFailed:
		msg := "job failed"
		if n := len(snap.Progress.Errors); n > 0 {
			msg = snap.Progress.Errors[n-1]
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  msg,
			"status": status,
			"phase":  snap.Phase,
			"errors": snap.Progress.Errors,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"job_id":   snap.ID,
			"kind":     snap.Kind,
			"status":   status,
			"cached":   snap.Cached,
			"warnings": snap.Progress.Warnings,
			"result":   result,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
