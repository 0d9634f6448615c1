package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pinggolf/m3-scheduling-core/internal/queue"
	"github.com/pinggolf/m3-scheduling-core/internal/scheduling"
	"github.com/pinggolf/m3-scheduling-core/internal/services"
)

// schedulingRunRequest is the POST body for starting a scheduling run.
type schedulingRunRequest struct {
	Environment string               `json:"environment"`
	Rows        []scheduling.PlanRow `json:"rows"`
}

// handleStartSchedulingRun enqueues a scheduling pipeline run and returns
// its task ID immediately; the run executes asynchronously on a
// SchedulingWorker.
func (s *Server) handleStartSchedulingRun(w http.ResponseWriter, r *http.Request) {
	var req schedulingRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Environment != "TRN" && req.Environment != "PRD" {
		http.Error(w, "environment must be TRN or PRD", http.StatusBadRequest)
		return
	}
	if len(req.Rows) == 0 {
		http.Error(w, "rows is required", http.StatusBadRequest)
		return
	}

	session, _ := s.sessionStore.Get(r, "m3-session")
	if sessionEnv, _ := session.Values["environment"].(string); sessionEnv != req.Environment {
		http.Error(w, "environment does not match authenticated session", http.StatusForbidden)
		return
	}

	taskID := uuid.New().String()
	ctx := r.Context()

	if err := s.db.CreateSchedulingRun(ctx, taskID, req.Environment, len(req.Rows)); err != nil {
		log.Printf("Failed to create scheduling run %s: %v", taskID, err)
		http.Error(w, "failed to create scheduling run", http.StatusInternalServerError)
		return
	}

	if err := s.auditService.Log(ctx, services.AuditParams{
		EntityType:  "scheduling_run",
		Operation:   "start",
		EntityID:    taskID,
		Environment: req.Environment,
		Metadata:    map[string]interface{}{"row_count": len(req.Rows)},
		IPAddress:   r.RemoteAddr,
		UserAgent:   r.UserAgent(),
	}); err != nil {
		log.Printf("Failed to audit-log scheduling run start %s: %v", taskID, err)
	}

	payload, err := json.Marshal(struct {
		TaskID      string               `json:"taskId"`
		Environment string               `json:"environment"`
		Rows        []scheduling.PlanRow `json:"rows"`
	}{TaskID: taskID, Environment: req.Environment, Rows: req.Rows})
	if err != nil {
		http.Error(w, "failed to encode run message", http.StatusInternalServerError)
		return
	}

	subject := queue.GetSchedulingRunSubject(req.Environment)
	if err := s.natsManager.Publish(subject, payload); err != nil {
		log.Printf("Failed to publish scheduling run %s: %v", taskID, err)
		http.Error(w, "failed to enqueue scheduling run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"task_id": taskID,
		"status":  "pending",
	})
}

// handleGetSchedulingRun returns the status, and, once complete, the stage
// metrics of a scheduling run.
func (s *Server) handleGetSchedulingRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID := vars["taskID"]
	if taskID == "" {
		http.Error(w, "task ID is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	run, err := s.db.GetSchedulingRun(ctx, taskID)
	if err != nil {
		log.Printf("Failed to get scheduling run %s: %v", taskID, err)
		http.Error(w, "failed to get scheduling run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "scheduling run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"task_id":         run.TaskID,
		"environment":     run.Environment,
		"status":          run.Status,
		"row_count":       run.RowCount,
		"mes_order_count": run.MesOrderCount,
		"stage_metrics":   json.RawMessage(run.StageMetrics),
		"error_message":   run.ErrorMessage.String,
		"created_at":      run.CreatedAt.Time,
		"completed_at":    run.CompletedAt.Time,
	})
}

// handleCancelSchedulingRun publishes a cancellation signal for a running
// scheduling run.
func (s *Server) handleCancelSchedulingRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID := vars["taskID"]
	if taskID == "" {
		http.Error(w, "task ID is required", http.StatusBadRequest)
		return
	}

	if err := s.natsManager.Publish(queue.GetSchedulingCancelSubject(taskID), nil); err != nil {
		log.Printf("Failed to publish cancel for scheduling run %s: %v", taskID, err)
		http.Error(w, "failed to cancel scheduling run", http.StatusInternalServerError)
		return
	}

	if err := s.auditService.Log(r.Context(), services.AuditParams{
		EntityType: "scheduling_run",
		Operation:  "cancel",
		EntityID:   taskID,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}); err != nil {
		log.Printf("Failed to audit-log scheduling run cancel %s: %v", taskID, err)
	}

	w.WriteHeader(http.StatusAccepted)
}
