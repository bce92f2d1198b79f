package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pipeworks/taskmesh/internal/model"
)

const ingestQueue = "task_email.process_subjects"

// handleAnalyze implements POST /api/v1/analyze (§6): body is a canonical
// email object; the handler creates a pending email_analysis job, enqueues
// it onto the high-priority ingest path (data flow in §2: "HTTP ingest ->
// Repository.write(pending) -> Broker.enqueue(high-priority) -> Worker"),
// and returns 202 with the job's status URL.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body", traceIDFromContext(r.Context()), nil)
		return
	}
	s.createJob(w, r, model.TypeEmailAnalysis, model.SourceEmail, body, "email_embedding.task_processing")
}

// handleAnalyzeSubjects implements POST /api/v1/analyze/subjects (§6):
// body is {subjects:[string], min_confidence?:float}.
func (s *Server) handleAnalyzeSubjects(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body", traceIDFromContext(r.Context()), nil)
		return
	}
	if _, ok := body["subjects"]; !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "subjects field is required", traceIDFromContext(r.Context()), nil)
		return
	}
	s.createJob(w, r, model.TypeSubjectAnalysis, model.SourceEmail, body, ingestQueue)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request, jobType model.Type, source model.Source, data map[string]interface{}, queue string) {
	ctx := r.Context()
	traceID := traceIDFromContext(ctx)
	record := apiKeyFromContext(ctx)

	jobID := s.IDs.NextString()
	job := &model.Job{
		ID:       jobID,
		Type:     jobType,
		Source:   source,
		Owner:    record.ClientID,
		Status:   model.StatusPending,
		Priority: model.MaxPriority,
		Data:     data,
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), traceID, nil)
		return
	}

	arg := string(source) + ":" + jobID + ":" + record.ClientID
	if err := s.Broker.Enqueue(ctx, queue, jobID, job.Priority, map[string]string{"arg": arg}); err != nil {
		s.Log.Error().Err(err).Str("job_id", jobID).Msg("enqueue failed, leaving for janitor/scheduler")
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     jobID,
		"status":     string(model.StatusPending),
		"status_url": "/api/v1/status/" + jobID,
	})
}

// handleStatus implements GET /api/v1/status/{job_id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := traceIDFromContext(ctx)
	record := apiKeyFromContext(ctx)
	jobID := mux.Vars(r)["job_id"]

	status, err := s.Repo.GetStatus(ctx, jobID, record.ClientID)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "job not found", traceID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), traceID, nil)
		return
	}

	resp := map[string]interface{}{"job_id": jobID, "status": string(status)}
	switch status {
	case model.StatusCompleted:
		resp["results_url"] = "/api/v1/results/" + jobID
	case model.StatusFailed:
		if msg, err := s.Repo.GetError(ctx, jobID, record.ClientID); err == nil {
			resp["error"] = msg
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResults implements GET /api/v1/results/{job_id}: results if ready,
// else a status envelope (§6).
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := traceIDFromContext(ctx)
	record := apiKeyFromContext(ctx)
	jobID := mux.Vars(r)["job_id"]

	status, err := s.Repo.GetStatus(ctx, jobID, record.ClientID)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "job not found", traceID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), traceID, nil)
		return
	}

	if status != model.StatusCompleted {
		writeJSON(w, http.StatusOK, map[string]interface{}{"job_id": jobID, "status": string(status)})
		return
	}

	results, err := s.Repo.GetResults(ctx, jobID, record.ClientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), traceID, nil)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleHealth implements GET /api/v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil && !s.Health.IsHealthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthDetailed implements GET /api/v1/health/detailed: component
// statuses for the Repository and Broker collaborators.
func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	components := map[string]string{}
	if err := s.Repo.Ping(ctx); err != nil {
		components["repository"] = "down: " + err.Error()
	} else {
		components["repository"] = "ok"
	}
	if err := s.Broker.Ping(ctx); err != nil {
		components["broker"] = "down: " + err.Error()
	} else {
		components["broker"] = "ok"
	}

	overall := "ok"
	for _, v := range components {
		if v != "ok" {
			overall = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": overall, "components": components})
}
