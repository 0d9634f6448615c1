package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_EmptyInputIsIdempotent(t *testing.T) {
	p := NewPipeline(DefaultConfig(), nil, nil)
	result := p.Run(context.Background(), []PlanRow{}, "task-empty")

	assert.True(t, result.Success)
	assert.False(t, result.Cancelled)
	assert.Empty(t, result.MesOrders)
	assert.Empty(t, result.ScheduleSummaries)
	assert.Equal(t, []string{"preprocessor", "merger", "splitter", "timecorrector", "synchroniser", "generator"}, result.StagesCompleted)
}

// Scenario A: merge + split end to end, from raw rows to MES orders.
func TestPipeline_MergeAndSplitEndToEnd(t *testing.T) {
	rows := []PlanRow{
		{
			WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 14:00"),
		},
		{
			WorkOrderNr: "WO2", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-16 14:00"), PlannedEnd: mustParse(t, "2024-10-16 20:00"),
		},
	}

	cfg := DefaultConfig()
	p := NewPipeline(cfg, nil, newFakeSequence())
	ctx := WithRunDate(context.Background(), mustParse(t, "2024-10-16 00:00"))
	result := p.Run(ctx, rows, "task-a")

	require.True(t, result.Success)
	require.Len(t, result.MesOrders, 2)

	var hws, hjb MesOrder
	for _, mo := range result.MesOrders {
		if mo.Kind == MesOrderHWS {
			hws = mo
		} else {
			hjb = mo
		}
	}
	assert.Equal(t, 200, hws.Quantity)
	assert.Equal(t, 200, hjb.Quantity)
	require.NotNil(t, hjb.InputBatch)
	assert.Equal(t, hws.PlanID, hjb.InputBatch.InputPlanID)

	require.Len(t, result.ScheduleSummaries, 1)
	assert.Equal(t, 200, result.ScheduleSummaries[0].QuantityTotal)
}

// §6.5 degraded mode: with every optional stage disabled, each input row
// still passes all the way through to one HJB order (no feeder
// decomposition, so no HWS).
func TestPipeline_AllOptionalStagesDisabledStillGeneratesOrders(t *testing.T) {
	rows := []PlanRow{
		{
			WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 50, FinalQuantity: 50,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 10:00"),
		},
	}

	cfg := DefaultConfig()
	cfg.MergeEnabled = false
	cfg.SplitEnabled = false
	cfg.CorrectionEnabled = false
	cfg.ParallelEnabled = false

	p := NewPipeline(cfg, nil, newFakeSequence())
	result := p.Run(context.Background(), rows, "task-degraded")

	require.True(t, result.Success)
	require.Len(t, result.MesOrders, 1)
	assert.Equal(t, MesOrderHJB, result.MesOrders[0].Kind)
	assert.Equal(t, 50, result.MesOrders[0].Quantity)
}

func TestPipeline_CancelledContextStopsBeforeLaterStages(t *testing.T) {
	rows := []PlanRow{
		{
			WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 50, FinalQuantity: 50,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 10:00"),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(DefaultConfig(), nil, newFakeSequence())
	result := p.Run(ctx, rows, "task-cancelled")

	assert.True(t, result.Cancelled)
	assert.False(t, result.Success)
}
