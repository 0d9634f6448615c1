package scheduling

import (
	"fmt"
	"time"
)

// Synchroniser forces the several machines that execute a single logical
// work order to start and finish together (§4.5).
type Synchroniser struct {
	config Config
}

// NewSynchroniser creates a Synchroniser.
func NewSynchroniser(config Config) *Synchroniser {
	return &Synchroniser{config: config}
}

// Synchronise groups corrected orders by their source work_order_nr and
// aligns packer windows within each group.
func (s *Synchroniser) Synchronise(orders []TimeCorrectedOrder) []SynchronisedOrder {
	if !s.config.ParallelEnabled {
		out := make([]SynchronisedOrder, len(orders))
		for i, o := range orders {
			out[i] = SynchronisedOrder{TimeCorrectedOrder: o}
		}
		return out
	}

	groups := make(map[string][]int)
	var order []string
	for i, o := range orders {
		key := o.SourcePlanNr
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := make([]SynchronisedOrder, len(orders))
	for _, key := range order {
		indices := groups[key]
		if len(indices) == 1 {
			i := indices[0]
			out[i] = SynchronisedOrder{TimeCorrectedOrder: orders[i], IsSynchronized: false}
			continue
		}

		s.synchroniseGroup(key, indices, orders, out)
	}

	return out
}

func (s *Synchroniser) synchroniseGroup(key string, indices []int, orders []TimeCorrectedOrder, out []SynchronisedOrder) {
	var packerIdx, feederIdx []int
	for _, i := range indices {
		if orders[i].IsPacker() {
			packerIdx = append(packerIdx, i)
		} else {
			feederIdx = append(feederIdx, i)
		}
	}

	var syncStart, syncEnd time.Time

	if len(packerIdx) > 0 {
		syncStart = orders[packerIdx[0]].PlannedStart
		syncEnd = orders[packerIdx[0]].PlannedEnd
		for _, i := range packerIdx[1:] {
			if orders[i].PlannedStart.Before(syncStart) {
				syncStart = orders[i].PlannedStart
			}
			if orders[i].PlannedEnd.After(syncEnd) {
				syncEnd = orders[i].PlannedEnd
			}
		}
	} else if len(feederIdx) > 0 {
		syncStart = orders[feederIdx[0]].PlannedStart
		syncEnd = orders[feederIdx[0]].PlannedEnd
		for _, i := range feederIdx[1:] {
			if orders[i].PlannedStart.After(syncStart) {
				syncStart = orders[i].PlannedStart
			}
			if orders[i].PlannedEnd.After(syncEnd) {
				syncEnd = orders[i].PlannedEnd
			}
		}
	}

	// Maintenance-rotation adjustment hook (§4.5 step 4): no rotating-
	// maintenance pattern detection exists yet, so the sync window passes
	// through unchanged.
	syncStart, syncEnd = applyMaintenanceRotationHook(syncStart, syncEnd)

	syncGroupID := fmt.Sprintf("SYNC_%s_%d", key, syncStart.Unix())
	total := len(indices)

	seq := 0
	for _, i := range packerIdx {
		seq++
		o := orders[i]
		o.PlannedStart = syncStart
		o.PlannedEnd = syncEnd
		out[i] = SynchronisedOrder{
			TimeCorrectedOrder: o,
			SyncGroupID:        syncGroupID,
			IsSynchronized:     true,
			SyncSequence:       seq,
			TotalSyncMachines:  total,
		}
	}
	for _, i := range feederIdx {
		seq++
		o := orders[i]
		// Feeders keep their own window; a feeder extending past the
		// packers' sync start is a recorded residual conflict, not a
		// correction — the Splitter already owns feeder exclusivity
		// (§9 Open Question 2).
		if len(packerIdx) > 0 && o.PlannedEnd.After(syncStart) {
			residual := &ResourceConflictResidual{
				WorkOrderNr: o.WorkOrderNr,
				Reason:      fmt.Sprintf("feeder window ends after packer sync start %s", syncStart.Format("2006-01-02 15:04")),
			}
			o.Warnings = append(append([]string(nil), o.Warnings...), residual.Error())
		}
		out[i] = SynchronisedOrder{
			TimeCorrectedOrder: o,
			SyncGroupID:        syncGroupID,
			IsSynchronized:     true,
			SyncSequence:       seq,
			TotalSyncMachines:  total,
		}
	}
}

// applyMaintenanceRotationHook is a stub for a planned rotating-maintenance
// adjustment across packer machines (§4.5 step 4). It currently returns
// the window unchanged.
func applyMaintenanceRotationHook(start, end time.Time) (time.Time, time.Time) {
	return start, end
}
