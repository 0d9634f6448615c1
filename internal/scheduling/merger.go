package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Merger fuses compatible preprocessed plans that share product/machine/month
// into MergedPlan records (§4.2). A Merger instance owns its own per-run
// sequence counter; create a fresh one per pipeline run.
type Merger struct {
	config  Config
	seq     int
	runDate time.Time
}

// NewMerger creates a Merger whose fresh work_order_nr sequence is scoped to
// runDate (typically time.Now() at orchestrator start).
func NewMerger(config Config, runDate time.Time) *Merger {
	return &Merger{config: config, seq: 1, runDate: runDate}
}

// Merge groups equivalence classes by union-find over the ∼ relation
// (§4.2), then fuses classes of size > 1.
func (m *Merger) Merge(plans []PreprocessedPlan) []MergedPlan {
	n := len(plans)
	if n == 0 {
		return nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(x, y int) {
		px, py := find(x), find(y)
		if px != py {
			parent[px] = py
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if m.canMerge(plans[i], plans[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]PreprocessedPlan)
	var order []int
	for i := 0; i < n; i++ {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], plans[i])
	}

	merged := make([]MergedPlan, 0, len(groups))
	for _, root := range order {
		group := groups[root]
		if len(group) > 1 {
			merged = append(merged, m.fuse(group))
		} else {
			merged = append(merged, passThrough(group[0]))
		}
	}

	return merged
}

// canMerge implements the ∼ equivalence relation of §4.2.
func (m *Merger) canMerge(a, b PreprocessedPlan) bool {
	if !sameMonth(a.PlannedStart, b.PlannedStart) {
		return false
	}
	if strings.TrimSpace(a.ArticleNr) != strings.TrimSpace(b.ArticleNr) {
		return false
	}
	if strings.TrimSpace(a.MakerCode) != strings.TrimSpace(b.MakerCode) {
		return false
	}
	if strings.TrimSpace(a.FeederCode) != strings.TrimSpace(b.FeederCode) {
		return false
	}
	if m.config.IsSpecialBrand(strings.TrimSpace(a.ArticleNr)) {
		return false
	}
	return true
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// fuse implements the fusion rule of §4.2 for a class of size > 1.
func (m *Merger) fuse(group []PreprocessedPlan) MergedPlan {
	sorted := make([]PreprocessedPlan, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PlannedStart.Before(sorted[j].PlannedStart)
	})

	minStart := sorted[0].PlannedStart
	maxEnd := sorted[0].PlannedEnd
	var quantityTotal, finalQuantity int
	mergedFrom := make([]string, 0, len(sorted))

	for _, p := range sorted {
		if p.PlannedStart.Before(minStart) {
			minStart = p.PlannedStart
		}
		if p.PlannedEnd.After(maxEnd) {
			maxEnd = p.PlannedEnd
		}
		quantityTotal += p.QuantityTotal
		finalQuantity += p.FinalQuantity
		mergedFrom = append(mergedFrom, p.WorkOrderNr)
	}

	first := sorted[0]
	workOrderNr := fmt.Sprintf("M%s%04d", m.runDate.Format("20060102"), m.seq)
	m.seq++

	return MergedPlan{
		WorkOrderNr:   workOrderNr,
		ArticleNr:     first.ArticleNr,
		MakerCode:     first.MakerCode,
		FeederCode:    first.FeederCode,
		QuantityTotal: quantityTotal,
		FinalQuantity: finalQuantity,
		PlannedStart:  minStart,
		PlannedEnd:    maxEnd,
		IsMerged:      true,
		MergedFrom:    mergedFrom,
		MergedCount:   len(sorted),
	}
}

// passThrough converts a singleton class to a MergedPlan unchanged.
func passThrough(p PreprocessedPlan) MergedPlan {
	return MergedPlan{
		WorkOrderNr:   p.WorkOrderNr,
		ArticleNr:     p.ArticleNr,
		MakerCode:     p.MakerCode,
		FeederCode:    p.FeederCode,
		QuantityTotal: p.QuantityTotal,
		FinalQuantity: p.FinalQuantity,
		PlannedStart:  p.PlannedStart,
		PlannedEnd:    p.PlannedEnd,
		IsMerged:      false,
	}
}
