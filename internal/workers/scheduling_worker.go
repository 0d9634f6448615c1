package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pinggolf/m3-scheduling-core/internal/config"
	"github.com/pinggolf/m3-scheduling-core/internal/db"
	"github.com/pinggolf/m3-scheduling-core/internal/queue"
	"github.com/pinggolf/m3-scheduling-core/internal/scheduling"
)

// SchedulingWorker runs the six-stage scheduling pipeline asynchronously,
// one run per message, load-balanced across workers via a NATS queue
// group.
type SchedulingWorker struct {
	nats     *queue.Manager
	db       *db.Queries
	config   *config.Config
	refData  scheduling.ReferenceDataPort
	sequence scheduling.SequencePort

	runContexts    map[string]context.CancelFunc
	runContextsMux sync.RWMutex
}

// NewSchedulingWorker creates a SchedulingWorker backed by the given
// reference-data and sequence ports for the pipeline, and database
// connection for run bookkeeping and output persistence.
func NewSchedulingWorker(nats *queue.Manager, database *db.Queries, cfg *config.Config, refData scheduling.ReferenceDataPort, sequence scheduling.SequencePort) *SchedulingWorker {
	return &SchedulingWorker{
		nats:        nats,
		db:          database,
		config:      cfg,
		refData:     refData,
		sequence:    sequence,
		runContexts: make(map[string]context.CancelFunc),
	}
}

// SchedulingRunMessage is the payload published to scheduling.run.{environment}.
type SchedulingRunMessage struct {
	TaskID      string               `json:"taskId"`
	Environment string               `json:"environment"`
	Rows        []scheduling.PlanRow `json:"rows"`
}

// Start subscribes to run requests for every environment and to
// cancellation requests.
func (w *SchedulingWorker) Start() error {
	log.Println("Starting scheduling worker...")

	environments := []string{"TRN", "PRD"}
	for _, env := range environments {
		subject := queue.GetSchedulingRunSubject(env)
		_, err := w.nats.QueueSubscribe(subject, queue.QueueGroupScheduling, w.handleRunRequest)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s scheduling runs: %w", env, err)
		}
	}

	_, err := w.nats.Subscribe("scheduling.cancel.*", w.handleCancelRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to scheduling cancellation requests: %w", err)
	}

	log.Println("Scheduling worker started and listening for runs")
	return nil
}

func (w *SchedulingWorker) handleRunRequest(msg *nats.Msg) {
	var req SchedulingRunMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("scheduling worker: failed to parse run request: %v", err)
		return
	}

	if err := w.processRun(req); err != nil {
		log.Printf("scheduling run %s failed: %v", req.TaskID, err)
	}
}

func (w *SchedulingWorker) processRun(req SchedulingRunMessage) error {
	ctx := w.createRunContext(req.TaskID)
	defer w.cancelRunContext(req.TaskID)

	if err := w.db.UpdateSchedulingRunStatus(ctx, req.TaskID, db.SchedulingRunRunning); err != nil {
		return fmt.Errorf("mark run %s running: %w", req.TaskID, err)
	}

	pipeline := scheduling.NewPipeline(w.config.Scheduling.ToCoreConfig(), w.refData, w.sequence)
	result := pipeline.Run(ctx, req.Rows, req.TaskID)

	switch {
	case result.Cancelled:
		w.publishCancelled(req.TaskID)
		return w.db.UpdateSchedulingRunStatus(ctx, req.TaskID, db.SchedulingRunCancelled)

	case !result.Success:
		errMsg := "unknown pipeline failure"
		if result.Error != nil {
			errMsg = result.Error.Error()
		}
		w.publishError(req.TaskID, errMsg)
		return w.db.CompleteSchedulingRun(ctx, req.TaskID, db.SchedulingRunFailed, result.StageMetrics, errMsg, 0)
	}

	if err := w.db.PersistScheduleRun(ctx, req.TaskID, result.MesOrders, result.ScheduleSummaries); err != nil {
		w.publishError(req.TaskID, err.Error())
		return w.db.CompleteSchedulingRun(ctx, req.TaskID, db.SchedulingRunFailed, result.StageMetrics, err.Error(), 0)
	}

	if err := w.db.CompleteSchedulingRun(ctx, req.TaskID, db.SchedulingRunCompleted, result.StageMetrics, "", len(result.MesOrders)); err != nil {
		return fmt.Errorf("complete run %s: %w", req.TaskID, err)
	}

	w.publishComplete(req.TaskID, len(result.MesOrders), len(result.ScheduleSummaries))
	return nil
}

func (w *SchedulingWorker) createRunContext(taskID string) context.Context {
	w.runContextsMux.Lock()
	defer w.runContextsMux.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	w.runContexts[taskID] = cancel
	return ctx
}

func (w *SchedulingWorker) cancelRunContext(taskID string) {
	w.runContextsMux.Lock()
	defer w.runContextsMux.Unlock()

	if cancel, ok := w.runContexts[taskID]; ok {
		cancel()
		delete(w.runContexts, taskID)
	}
}

func (w *SchedulingWorker) handleCancelRequest(msg *nats.Msg) {
	prefix := len("scheduling.cancel.")
	if len(msg.Subject) <= prefix {
		log.Printf("scheduling worker: invalid cancel subject: %s", msg.Subject)
		return
	}
	taskID := msg.Subject[prefix:]

	w.runContextsMux.RLock()
	cancel, ok := w.runContexts[taskID]
	w.runContextsMux.RUnlock()
	if ok {
		cancel()
		log.Printf("scheduling worker: cancelled run %s", taskID)
	}
}

type schedulingProgressPayload struct {
	TaskID   string `json:"taskId"`
	Status   string `json:"status"`
	OrderCount int  `json:"orderCount,omitempty"`
	SummaryCount int `json:"summaryCount,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (w *SchedulingWorker) publishComplete(taskID string, orderCount, summaryCount int) {
	data, _ := json.Marshal(schedulingProgressPayload{TaskID: taskID, Status: "completed", OrderCount: orderCount, SummaryCount: summaryCount})
	if err := w.nats.Publish(queue.GetSchedulingCompleteSubject(taskID), data); err != nil {
		log.Printf("scheduling worker: failed to publish completion for %s: %v", taskID, err)
	}
}

func (w *SchedulingWorker) publishError(taskID, errMsg string) {
	data, _ := json.Marshal(schedulingProgressPayload{TaskID: taskID, Status: "failed", Error: errMsg})
	if err := w.nats.Publish(queue.GetSchedulingErrorSubject(taskID), data); err != nil {
		log.Printf("scheduling worker: failed to publish error for %s: %v", taskID, err)
	}
}

func (w *SchedulingWorker) publishCancelled(taskID string) {
	data, _ := json.Marshal(schedulingProgressPayload{TaskID: taskID, Status: "cancelled"})
	if err := w.nats.Publish(queue.GetSchedulingProgressSubject(taskID), data); err != nil {
		log.Printf("scheduling worker: failed to publish cancellation for %s: %v", taskID, err)
	}
}
