package scheduling

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mesPlanIDPattern = regexp.MustCompile(`^H(WS|JB)\d{9}$`)

type fakeSequence struct {
	counters map[string]uint64
	err      error
}

func newFakeSequence() *fakeSequence {
	return &fakeSequence{counters: make(map[string]uint64)}
}

func (f *fakeSequence) Next(_ context.Context, kind string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counters[kind]++
	return f.counters[kind], nil
}

func synchronisedFeeder(sourcePlanNr, workOrderNr, feederCode string, t *testing.T) SynchronisedOrder {
	return SynchronisedOrder{
		TimeCorrectedOrder: TimeCorrectedOrder{
			SplitOrder: SplitOrder{
				WorkOrderNr:   workOrderNr,
				WorkOrderType: WorkOrderTypeFeeding,
				SourcePlanNr:  sourcePlanNr,
				FeederCode:    feederCode,
				ArticleNr:     "ART1",
				QuantityTotal: 200,
				FinalQuantity: 200,
				PlannedStart:  mustParse(t, "2024-10-16 08:00"),
				PlannedEnd:    mustParse(t, "2024-10-16 20:00"),
			},
		},
	}
}

func synchronisedPacker(sourcePlanNr, workOrderNr, makerCode, inputPlanID string, qty int, t *testing.T) SynchronisedOrder {
	return SynchronisedOrder{
		TimeCorrectedOrder: TimeCorrectedOrder{
			SplitOrder: SplitOrder{
				WorkOrderNr:   workOrderNr,
				WorkOrderType: WorkOrderTypePacking,
				SourcePlanNr:  sourcePlanNr,
				MakerCode:     makerCode,
				ArticleNr:     "ART1",
				QuantityTotal: qty,
				FinalQuantity: qty,
				InputPlanID:   inputPlanID,
				PlannedStart:  mustParse(t, "2024-10-16 08:00"),
				PlannedEnd:    mustParse(t, "2024-10-16 20:00"),
			},
		},
	}
}

// Scenario A: one feeder plus one packer on a single source plan produces
// one HWS and one HJB order, linked via input_plan_id, plus one summary.
func TestGenerator_EmitsLinkedHWSAndHJB(t *testing.T) {
	orders := []SynchronisedOrder{
		synchronisedFeeder("WO1", "FD0001", "F001", t),
		synchronisedPacker("WO1", "PK0001", "C1", "FD0001", 200, t),
	}

	seq := newFakeSequence()
	g := NewGenerator(seq)
	mesOrders, summaries := g.Generate(context.Background(), orders, "task-1")

	require.Len(t, mesOrders, 2)
	var hws, hjb MesOrder
	for _, mo := range mesOrders {
		if mo.Kind == MesOrderHWS {
			hws = mo
		} else {
			hjb = mo
		}
	}

	assert.Regexp(t, mesPlanIDPattern, hws.PlanID)
	assert.Regexp(t, mesPlanIDPattern, hjb.PlanID)
	assert.Equal(t, unitHWS, hws.Unit)
	assert.Equal(t, unitHJB, hjb.Unit)
	assert.Equal(t, 200, hws.Quantity)
	assert.Equal(t, 200, hjb.Quantity)
	require.NotNil(t, hjb.InputBatch)
	assert.Equal(t, hws.PlanID, hjb.InputBatch.InputPlanID)
	assert.Empty(t, hws.OrderType)
	assert.Empty(t, hjb.OrderType)

	require.Len(t, summaries, 1)
	assert.Equal(t, "WO1", summaries[0].WorkOrderNr)
	assert.Equal(t, "task-1", summaries[0].TaskID)
	assert.Equal(t, ScheduleStatusCompleted, summaries[0].ScheduleStatus)
}

// Scenario D: three packers sharing a source plan each get their own HJB,
// and the summary is the cartesian product of makers and feeders.
func TestGenerator_EmitsOneHJBPerMakerAndCartesianSummaries(t *testing.T) {
	orders := []SynchronisedOrder{
		synchronisedFeeder("WO1", "FD0001", "F001", t),
		synchronisedPacker("WO1", "PK0001", "C1", "FD0001", 100, t),
		synchronisedPacker("WO1", "PK0002", "C2", "FD0001", 100, t),
		synchronisedPacker("WO1", "PK0003", "C3", "FD0001", 100, t),
	}

	seq := newFakeSequence()
	g := NewGenerator(seq)
	mesOrders, summaries := g.Generate(context.Background(), orders, "task-2")

	var hjbCount, hwsCount int
	for _, mo := range mesOrders {
		if mo.Kind == MesOrderHJB {
			hjbCount++
		} else {
			hwsCount++
		}
	}
	assert.Equal(t, 3, hjbCount)
	assert.Equal(t, 1, hwsCount)
	require.Len(t, summaries, 3)
}

func TestGenerator_FallsBackOnSequenceFailure(t *testing.T) {
	orders := []SynchronisedOrder{
		synchronisedFeeder("WO1", "FD0001", "F001", t),
	}

	seq := newFakeSequence()
	seq.err = assert.AnError
	g := NewGenerator(seq)
	mesOrders, _ := g.Generate(context.Background(), orders, "task-3")

	require.Len(t, mesOrders, 1)
	assert.Equal(t, "FALLBACK", mesOrders[0].OrderType)
	assert.Regexp(t, mesPlanIDPattern, mesOrders[0].PlanID)
	require.Len(t, g.Warnings(), 1)
	var seqErr *SequenceAllocationFailure
	require.ErrorAs(t, g.Warnings()[0], &seqErr)
}
