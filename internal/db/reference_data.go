package db

import (
	"context"
	"database/sql"

	"github.com/pinggolf/m3-scheduling-core/internal/scheduling"
)

// SchedulingReferenceData is a Postgres-backed scheduling.ReferenceDataPort
// reading the four scheduling_* reference tables.
type SchedulingReferenceData struct {
	db *sql.DB
}

// NewSchedulingReferenceData creates a SchedulingReferenceData port.
func NewSchedulingReferenceData(database *sql.DB) *SchedulingReferenceData {
	return &SchedulingReferenceData{db: database}
}

// MachineSpeed implements scheduling.ReferenceDataPort.
func (r *SchedulingReferenceData) MachineSpeed(machineCode, articleNr string) (scheduling.MachineSpeed, bool) {
	query := `
		SELECT machine_code, article_nr, speed, efficiency_rate, setup_minutes,
		       changeover_minutes, effective_from, effective_to
		FROM scheduling_machine_speeds
		WHERE machine_code = $1 AND article_nr = $2
		LIMIT 1
	`
	row := r.db.QueryRowContext(context.Background(), query, machineCode, articleNr)

	var speed scheduling.MachineSpeed
	err := row.Scan(&speed.MachineCode, &speed.ArticleNr, &speed.Speed, &speed.EfficiencyRate,
		&speed.SetupMinutes, &speed.ChangeoverMinutes, &speed.EffectiveFrom, &speed.EffectiveTo)
	if err != nil {
		return scheduling.MachineSpeed{}, false
	}
	return speed, true
}

// MaintenanceWindows implements scheduling.ReferenceDataPort.
func (r *SchedulingReferenceData) MaintenanceWindows(machineCode string) []scheduling.MaintenanceWindow {
	query := `
		SELECT machine_code, maint_start_time, maint_end_time, maintenance_type, plan_status
		FROM scheduling_maintenance_plans
		WHERE machine_code = $1
	`
	rows, err := r.db.QueryContext(context.Background(), query, machineCode)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var windows []scheduling.MaintenanceWindow
	for rows.Next() {
		var w scheduling.MaintenanceWindow
		if err := rows.Scan(&w.MachineCode, &w.MaintStartTime, &w.MaintEndTime, &w.MaintenanceType, &w.PlanStatus); err != nil {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

// Shifts implements scheduling.ReferenceDataPort.
func (r *SchedulingReferenceData) Shifts() []scheduling.Shift {
	query := `SELECT name, start_time, end_time FROM scheduling_shift_configs ORDER BY start_time`
	rows, err := r.db.QueryContext(context.Background(), query)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var shifts []scheduling.Shift
	for rows.Next() {
		var s scheduling.Shift
		if err := rows.Scan(&s.Name, &s.StartTime, &s.EndTime); err != nil {
			continue
		}
		shifts = append(shifts, s)
	}
	return shifts
}

// MachineRelations implements scheduling.ReferenceDataPort.
func (r *SchedulingReferenceData) MachineRelations(feederCode string) []scheduling.MachineRelation {
	query := `
		SELECT feeder_code, maker_code, priority
		FROM scheduling_machine_relations
		WHERE feeder_code = $1
		ORDER BY priority ASC
	`
	rows, err := r.db.QueryContext(context.Background(), query, feederCode)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var relations []scheduling.MachineRelation
	for rows.Next() {
		var rel scheduling.MachineRelation
		if err := rows.Scan(&rel.FeederCode, &rel.MakerCode, &rel.Priority); err != nil {
			continue
		}
		relations = append(relations, rel)
	}
	return relations
}

// LoadSnapshot checks that the reference-data database is reachable. It
// does not fetch or cache any rows; the port methods query on each call.
func (r *SchedulingReferenceData) LoadSnapshot(ctx context.Context) error {
	// The port methods above already query on demand; this is a liveness
	// check so a run fails fast on a broken connection rather than
	// degrading silently through every "not found" fallback.
	return r.db.PingContext(ctx)
}

var _ scheduling.ReferenceDataPort = (*SchedulingReferenceData)(nil)
