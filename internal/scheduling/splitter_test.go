package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario B: a second feeder booking overlapping an already-resolved one
// gets pushed to start at the conflicting booking's end.
func TestSplitter_ResolvesFeederConflictByPushingStart(t *testing.T) {
	plans := []MergedPlan{
		{
			WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 14:00"),
		},
		{
			WorkOrderNr: "WO2", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-16 10:00"), PlannedEnd: mustParse(t, "2024-10-16 16:00"),
		},
	}

	s := NewSplitter(DefaultConfig(), nil, mustParse(t, "2024-10-16 00:00"))
	orders := s.Split(plans)

	var packers []SplitOrder
	for _, o := range orders {
		if o.IsPacker() && o.SourcePlanNr == "WO2" {
			packers = append(packers, o)
		}
	}
	require.Len(t, packers, 1)
	assert.True(t, packers[0].PlannedStart.Equal(mustParse(t, "2024-10-16 14:00")))
	assert.True(t, packers[0].PlannedEnd.Equal(mustParse(t, "2024-10-16 20:00")))
	assert.True(t, packers[0].ScheduleAdjusted)
}

// Scenario D: a multi-maker plan splits into one packer per maker, with the
// integer-division remainder landing on the first maker.
func TestSplitter_SplitsMultiMakerWithRemainderOnFirst(t *testing.T) {
	plans := []MergedPlan{
		{
			WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1,C2,C3", FeederCode: "F001",
			QuantityTotal: 301, FinalQuantity: 301,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 14:00"),
		},
	}

	s := NewSplitter(DefaultConfig(), nil, mustParse(t, "2024-10-16 00:00"))
	orders := s.Split(plans)

	var feeder SplitOrder
	var packers []SplitOrder
	for _, o := range orders {
		if o.IsFeeder() {
			feeder = o
		} else {
			packers = append(packers, o)
		}
	}

	require.Len(t, packers, 3)
	assert.Equal(t, "F001", feeder.FeederCode)
	assert.Equal(t, 301, feeder.QuantityTotal)

	qtys := make([]int, len(packers))
	for i, p := range packers {
		qtys[i] = p.QuantityTotal
		assert.Equal(t, feeder.WorkOrderNr, p.InputPlanID)
	}
	assert.ElementsMatch(t, []int{101, 100, 100}, qtys)

	sum := 0
	for _, q := range qtys {
		sum += q
	}
	assert.Equal(t, 301, sum)
}

func TestSplitter_RejectsEmptyFeederCode(t *testing.T) {
	plans := []MergedPlan{
		{
			WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1", FeederCode: "",
			QuantityTotal: 10, FinalQuantity: 10,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 10:00"),
		},
	}

	s := NewSplitter(DefaultConfig(), nil, mustParse(t, "2024-10-16 00:00"))
	orders := s.Split(plans)

	assert.Empty(t, orders)
	require.Len(t, s.Warnings(), 1)
	var verr *ValidationError
	require.ErrorAs(t, s.Warnings()[0], &verr)
}
