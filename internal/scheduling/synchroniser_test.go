package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeCorrectedPacker(sourcePlanNr, workOrderNr string, start, end string, t *testing.T) TimeCorrectedOrder {
	return TimeCorrectedOrder{
		SplitOrder: SplitOrder{
			WorkOrderNr:   workOrderNr,
			WorkOrderType: WorkOrderTypePacking,
			SourcePlanNr:  sourcePlanNr,
			PlannedStart:  mustParse(t, start),
			PlannedEnd:    mustParse(t, end),
		},
	}
}

// Scenario D: packers sharing a source plan synchronise to the widest
// packer window, each receiving the same planned_start/end (sync atomicity).
func TestSynchroniser_AlignsPackersToWidestWindow(t *testing.T) {
	orders := []TimeCorrectedOrder{
		timeCorrectedPacker("WO1", "PK0001", "2024-10-16 08:00", "2024-10-16 12:00", t),
		timeCorrectedPacker("WO1", "PK0002", "2024-10-16 08:00", "2024-10-16 14:00", t),
		timeCorrectedPacker("WO1", "PK0003", "2024-10-16 08:00", "2024-10-16 13:00", t),
	}

	cfg := DefaultConfig()
	cfg.ParallelEnabled = true
	s := NewSynchroniser(cfg)
	out := s.Synchronise(orders)

	require.Len(t, out, 3)
	for _, o := range out {
		assert.True(t, o.IsSynchronized)
		assert.True(t, o.PlannedStart.Equal(mustParse(t, "2024-10-16 08:00")))
		assert.True(t, o.PlannedEnd.Equal(mustParse(t, "2024-10-16 14:00")))
		assert.NotEmpty(t, o.SyncGroupID)
		assert.Equal(t, 3, o.TotalSyncMachines)
	}
}

func TestSynchroniser_SingletonGroupPassesThroughUnsynchronised(t *testing.T) {
	orders := []TimeCorrectedOrder{
		timeCorrectedPacker("WO1", "PK0001", "2024-10-16 08:00", "2024-10-16 12:00", t),
	}

	cfg := DefaultConfig()
	cfg.ParallelEnabled = true
	s := NewSynchroniser(cfg)
	out := s.Synchronise(orders)

	require.Len(t, out, 1)
	assert.False(t, out[0].IsSynchronized)
	assert.Empty(t, out[0].SyncGroupID)
}

func TestSynchroniser_DisabledPassesThroughAllOrders(t *testing.T) {
	orders := []TimeCorrectedOrder{
		timeCorrectedPacker("WO1", "PK0001", "2024-10-16 08:00", "2024-10-16 12:00", t),
		timeCorrectedPacker("WO1", "PK0002", "2024-10-16 08:00", "2024-10-16 14:00", t),
	}

	cfg := DefaultConfig()
	cfg.ParallelEnabled = false
	s := NewSynchroniser(cfg)
	out := s.Synchronise(orders)

	require.Len(t, out, 2)
	for i, o := range out {
		assert.False(t, o.IsSynchronized)
		assert.True(t, o.PlannedStart.Equal(orders[i].PlannedStart))
		assert.True(t, o.PlannedEnd.Equal(orders[i].PlannedEnd))
	}
}
