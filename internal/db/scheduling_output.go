package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pinggolf/m3-scheduling-core/internal/scheduling"
)

// PersistScheduleRun writes every MES order and schedule summary produced
// by one pipeline run inside a single transaction, keyed by taskID (§5
// "MES-order and schedule-summary persistence is a single write
// transaction per run").
func (q *Queries) PersistScheduleRun(ctx context.Context, taskID string, orders []scheduling.MesOrder, summaries []scheduling.ScheduleSummary) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule persistence transaction: %w", err)
	}
	defer tx.Rollback()

	for _, o := range orders {
		var inputPlanID sql.NullString
		if o.InputBatch != nil {
			inputPlanID = sql.NullString{String: o.InputBatch.InputPlanID, Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO scheduling_mes_orders (
				task_id, plan_id, kind, production_line, material_code, quantity, unit,
				plan_start_time, plan_end_time, is_backup, input_plan_id, order_type, source_work_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			taskID, o.PlanID, string(o.Kind), o.ProductionLine, o.MaterialCode, o.Quantity, o.Unit,
			o.PlanStartTime, o.PlanEndTime, o.IsBackup, inputPlanID, o.OrderType, o.SourceWorkOrder,
		)
		if err != nil {
			return fmt.Errorf("insert mes order %s: %w", o.PlanID, err)
		}
	}

	for _, s := range summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scheduling_schedule_summaries (
				task_id, work_order_nr, article_nr, final_quantity, quantity_total,
				maker_code, feeder_code, planned_start, planned_end, schedule_status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			taskID, s.WorkOrderNr, s.ArticleNr, s.FinalQuantity, s.QuantityTotal,
			s.MakerCode, s.FeederCode, s.PlannedStart, s.PlannedEnd, string(s.ScheduleStatus),
		)
		if err != nil {
			return fmt.Errorf("insert schedule summary %s: %w", s.WorkOrderNr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule persistence transaction: %w", err)
	}
	return nil
}

// SchedulingRunStatus is the lifecycle status of a scheduling_runs row.
type SchedulingRunStatus string

const (
	SchedulingRunPending   SchedulingRunStatus = "pending"
	SchedulingRunRunning   SchedulingRunStatus = "running"
	SchedulingRunCompleted SchedulingRunStatus = "completed"
	SchedulingRunFailed    SchedulingRunStatus = "failed"
	SchedulingRunCancelled SchedulingRunStatus = "cancelled"
)

// CreateSchedulingRun records a new scheduling run as pending.
func (q *Queries) CreateSchedulingRun(ctx context.Context, taskID, environment string, rowCount int) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scheduling_runs (task_id, environment, status, row_count)
		VALUES ($1, $2, $3, $4)
	`, taskID, environment, string(SchedulingRunPending), rowCount)
	if err != nil {
		return fmt.Errorf("create scheduling run %s: %w", taskID, err)
	}
	return nil
}

// UpdateSchedulingRunStatus transitions a run's status.
func (q *Queries) UpdateSchedulingRunStatus(ctx context.Context, taskID string, status SchedulingRunStatus) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scheduling_runs SET status = $1, updated_at = NOW() WHERE task_id = $2
	`, string(status), taskID)
	if err != nil {
		return fmt.Errorf("update scheduling run %s: %w", taskID, err)
	}
	return nil
}

// CompleteSchedulingRun stores the terminal outcome of a run: its stage
// metrics and, on failure, the error message.
func (q *Queries) CompleteSchedulingRun(ctx context.Context, taskID string, status SchedulingRunStatus, stageMetrics []scheduling.StageMetric, errMsg string, mesOrderCount int) error {
	metricsJSON, err := json.Marshal(stageMetrics)
	if err != nil {
		return fmt.Errorf("marshal stage metrics for %s: %w", taskID, err)
	}

	_, err = q.db.ExecContext(ctx, `
		UPDATE scheduling_runs
		SET status = $1, stage_metrics = $2, error_message = $3, mes_order_count = $4,
		    completed_at = NOW(), updated_at = NOW()
		WHERE task_id = $5
	`, string(status), metricsJSON, sql.NullString{String: errMsg, Valid: errMsg != ""}, mesOrderCount, taskID)
	if err != nil {
		return fmt.Errorf("complete scheduling run %s: %w", taskID, err)
	}
	return nil
}

// SchedulingRun is a row from scheduling_runs.
type SchedulingRun struct {
	TaskID        string
	Environment   string
	Status        string
	RowCount      int
	MesOrderCount int
	StageMetrics  json.RawMessage
	ErrorMessage  sql.NullString
	CreatedAt     sql.NullTime
	CompletedAt   sql.NullTime
}

// GetSchedulingRun fetches a run by task ID.
func (q *Queries) GetSchedulingRun(ctx context.Context, taskID string) (*SchedulingRun, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT task_id, environment, status, row_count, mes_order_count,
		       COALESCE(stage_metrics, '[]'), error_message, created_at, completed_at
		FROM scheduling_runs WHERE task_id = $1
	`, taskID)

	var run SchedulingRun
	err := row.Scan(&run.TaskID, &run.Environment, &run.Status, &run.RowCount, &run.MesOrderCount,
		&run.StageMetrics, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get scheduling run %s: %w", taskID, err)
	}
	return &run, nil
}
