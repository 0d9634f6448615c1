package scheduling

import (
	"context"
	"fmt"
	"time"
)

// PipelineResult is the outcome of a single orchestrator run (§4.7).
type PipelineResult struct {
	Success  bool
	Cancelled bool
	Error    error

	StagesCompleted []string
	StageMetrics    []StageMetric

	MesOrders         []MesOrder
	ScheduleSummaries []ScheduleSummary

	Warnings []error
}

// Pipeline runs the six scheduling stages in order against a fresh set of
// stage instances per run (§4.7).
type Pipeline struct {
	config   Config
	refData  ReferenceDataPort
	sequence SequencePort
}

// NewPipeline creates a Pipeline. refData and sequence may be nil; the
// affected stages degrade per §4.4/§4.6 in that case.
func NewPipeline(config Config, refData ReferenceDataPort, sequence SequencePort) *Pipeline {
	return &Pipeline{config: config, refData: refData, sequence: sequence}
}

// Run executes the six-stage pipeline against rows, honoring ctx's
// deadline and cancellation. The current unit of work always finishes
// before a cancellation is observed (§5).
func (p *Pipeline) Run(ctx context.Context, rows []PlanRow, taskID string) PipelineResult {
	runDate := deadlineOrNow(ctx)

	result := PipelineResult{}

	deadline := p.config.Deadline
	if deadline <= 0 {
		deadline = time.Hour
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, deadline)
	defer cancel()

	// Stage 1: Preprocessor.
	preStart := time.Now()
	preReport := Preprocess(rows)
	result.StagesCompleted = append(result.StagesCompleted, "preprocessor")
	result.Warnings = append(result.Warnings, preReport.Errors...)
	metric := newStageMetric("preprocessor")
	metric.finish(preStart, len(rows), len(preReport.Processed), len(preReport.Errors))
	result.StageMetrics = append(result.StageMetrics, *metric)

	if cancelled(ctx) {
		result.Cancelled = true
		return result
	}

	// Stage 2: Merger.
	var merged []MergedPlan
	if p.config.MergeEnabled {
		merger := NewMerger(p.config, runDate)
		start := time.Now()
		merged = merger.Merge(preReport.Processed)
		m := newStageMetric("merger")
		m.finish(start, len(preReport.Processed), len(merged), 0)
		result.StageMetrics = append(result.StageMetrics, *m)
	} else {
		for _, pp := range preReport.Processed {
			merged = append(merged, passThrough(pp))
		}
	}
	result.StagesCompleted = append(result.StagesCompleted, "merger")

	if cancelled(ctx) {
		result.Cancelled = true
		return result
	}

	// Stage 3: Splitter.
	var split []SplitOrder
	if p.config.SplitEnabled {
		splitter := NewSplitter(p.config, p.refData, runDate)
		start := time.Now()
		split = splitter.Split(merged)
		result.Warnings = append(result.Warnings, splitter.Warnings()...)
		m := newStageMetric("splitter")
		m.finish(start, len(merged), len(split), len(splitter.Warnings()))
		result.StageMetrics = append(result.StageMetrics, *m)
	} else {
		split = passThroughAsPackers(merged)
	}
	result.StagesCompleted = append(result.StagesCompleted, "splitter")

	if cancelled(ctx) {
		result.Cancelled = true
		return result
	}

	// Stage 4: Time Corrector.
	corrector := NewTimeCorrector(p.config, p.refData)
	start := time.Now()
	corrected := corrector.Correct(split)
	m := newStageMetric("timecorrector")
	failedCount := 0
	for _, o := range corrected {
		if o.CorrectionFailed {
			failedCount++
		}
		if o.SpeedAdjusted {
			m.CustomMetrics["speed_adjusted"]++
		}
		if o.MaintenanceAdjusted {
			m.CustomMetrics["maintenance_adjusted"]++
		}
		if o.ShiftAdjusted {
			m.CustomMetrics["shift_adjusted"]++
		}
	}
	m.finish(start, len(split), len(corrected), failedCount)
	result.StageMetrics = append(result.StageMetrics, *m)
	result.StagesCompleted = append(result.StagesCompleted, "timecorrector")

	if cancelled(ctx) {
		result.Cancelled = true
		return result
	}

	// Stage 5: Parallel Synchroniser.
	synchroniser := NewSynchroniser(p.config)
	start = time.Now()
	synchronised := synchroniser.Synchronise(corrected)
	m = newStageMetric("synchroniser")
	m.finish(start, len(corrected), len(synchronised), 0)
	result.StageMetrics = append(result.StageMetrics, *m)
	result.StagesCompleted = append(result.StagesCompleted, "synchroniser")

	if cancelled(ctx) {
		result.Cancelled = true
		return result
	}

	// Stage 6: Work-Order Generator.
	generator := NewGenerator(p.sequence)
	start = time.Now()
	mesOrders, summaries := generator.Generate(ctx, synchronised, taskID)
	result.Warnings = append(result.Warnings, generator.Warnings()...)
	m = newStageMetric("generator")
	m.finish(start, len(synchronised), len(mesOrders), len(generator.Warnings()))
	result.StageMetrics = append(result.StageMetrics, *m)
	result.StagesCompleted = append(result.StagesCompleted, "generator")

	result.Success = true
	result.MesOrders = mesOrders
	result.ScheduleSummaries = summaries
	return result
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// deadlineOrNow returns a reference timestamp for sequence generation.
// Callers pass a context whose value (if any) pins the run's clock; by
// default the wall clock at run start is used.
func deadlineOrNow(ctx context.Context) time.Time {
	if t, ok := ctx.Value(runDateKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

type runDateKey struct{}

// WithRunDate returns a context carrying a fixed run date, letting callers
// pin the Merger/Splitter's sequence-ID timestamp (tests, replays).
func WithRunDate(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, runDateKey{}, t)
}

// passThroughAsPackers implements the split_enabled=false degraded mode
// of §6.5: merged plans pass through as single PackerOrders with no
// feeder decomposition.
func passThroughAsPackers(plans []MergedPlan) []SplitOrder {
	out := make([]SplitOrder, 0, len(plans))
	for _, p := range plans {
		out = append(out, SplitOrder{
			WorkOrderNr:   fmt.Sprintf("PK%s", p.WorkOrderNr),
			WorkOrderType: WorkOrderTypePacking,
			SourcePlanNr:  p.WorkOrderNr,
			ArticleNr:     p.ArticleNr,
			MakerCode:     p.MakerCode,
			FeederCode:    p.FeederCode,
			QuantityTotal: p.QuantityTotal,
			FinalQuantity: p.FinalQuantity,
			PlannedStart:  p.PlannedStart,
			PlannedEnd:    p.PlannedEnd,
			SplitSequence: 1,
			TotalMakers:   1,
		})
	}
	return out
}
