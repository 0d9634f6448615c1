package scheduling

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// bookedInterval is one entry in a feeder's "already-booked intervals"
// list, built up while resolving conflicts within a feeder group (§4.3
// step 2, §9 "Concurrency" note).
type bookedInterval struct {
	start time.Time
	end   time.Time
}

// overlaps implements the strict-overlap check of §4.3:
// ¬(end1 ≤ start2 ∨ end2 ≤ start1).
func (b bookedInterval) overlaps(start, end time.Time) bool {
	return !(b.end.Before(start) || b.end.Equal(start) || end.Before(b.start) || end.Equal(b.start))
}

// Splitter decomposes merged plans into per-machine work orders, resolving
// feeder-machine conflicts (§4.3).
type Splitter struct {
	config    Config
	relations ReferenceDataPort // may be nil; machine-relation check is optional

	runDate time.Time
	seq     int

	warnings []error
}

// NewSplitter creates a Splitter. relations may be nil to skip the optional
// machine-relation soft validation.
func NewSplitter(config Config, relations ReferenceDataPort, runDate time.Time) *Splitter {
	return &Splitter{config: config, relations: relations, runDate: runDate, seq: 1}
}

// Warnings returns every soft-validation / conflict warning recorded during
// the most recent Split call.
func (s *Splitter) Warnings() []error { return s.warnings }

// Split groups merged plans by feeder, resolves per-feeder time conflicts,
// and emits one FeederOrder per feeder group plus N PackerOrders per
// resolved plan (§4.3).
func (s *Splitter) Split(plans []MergedPlan) []SplitOrder {
	s.warnings = nil

	groups := make(map[string][]MergedPlan)
	var feederOrder []string
	for _, p := range plans {
		feeder := strings.TrimSpace(p.FeederCode)
		if feeder == "" {
			s.warnings = append(s.warnings, &ValidationError{
				WorkOrderNr: p.WorkOrderNr,
				Reason:      "plan rejected: empty feeder_code",
			})
			log.Printf("splitter: rejecting plan %s, empty feeder_code", p.WorkOrderNr)
			continue
		}
		if _, ok := groups[feeder]; !ok {
			feederOrder = append(feederOrder, feeder)
		}
		groups[feeder] = append(groups[feeder], p)
	}

	var out []SplitOrder

	for _, feeder := range feederOrder {
		group := groups[feeder]
		resolved := s.resolveFeederConflicts(group)
		out = append(out, s.emitFeederGroup(feeder, resolved)...)
	}

	return out
}

// resolveFeederConflicts implements §4.3 step 2: processes plans sorted by
// planned_start ascending, pushing overlapping starts to the latest
// conflicting end.
func (s *Splitter) resolveFeederConflicts(group []MergedPlan) []ResolvedFeederInterval {
	sorted := make([]MergedPlan, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PlannedStart.Before(sorted[j].PlannedStart)
	})

	var booked []bookedInterval
	resolved := make([]ResolvedFeederInterval, 0, len(sorted))

	for _, plan := range sorted {
		start := plan.PlannedStart
		end := plan.PlannedEnd
		duration := end.Sub(start)

		adjusted := false
		for {
			latestConflictEnd := time.Time{}
			conflicted := false
			for _, b := range booked {
				if b.overlaps(start, end) {
					conflicted = true
					if b.end.After(latestConflictEnd) {
						latestConflictEnd = b.end
					}
				}
			}
			if !conflicted {
				break
			}
			start = latestConflictEnd
			end = start.Add(duration)
			adjusted = true
		}

		booked = append(booked, bookedInterval{start: start, end: end})

		reason := ""
		if adjusted {
			reason = fmt.Sprintf("pushed past conflicting feeder booking on %s", plan.FeederCode)
		}
		resolved = append(resolved, ResolvedFeederInterval{
			SourcePlan:       plan,
			PlannedStart:     start,
			PlannedEnd:       end,
			ScheduleAdjusted: adjusted,
			AdjustmentReason: reason,
		})
	}

	return resolved
}

// emitFeederGroup implements §4.3 step 3: one FeederOrder aggregating the
// group, plus N PackerOrders per resolved plan.
func (s *Splitter) emitFeederGroup(feeder string, resolved []ResolvedFeederInterval) []SplitOrder {
	if len(resolved) == 0 {
		return nil
	}

	feederWorkOrderNr := s.nextFeederNr()

	var quantityTotal, finalQuantity int
	minStart := resolved[0].PlannedStart
	maxEnd := resolved[0].PlannedEnd
	articleCounts := make(map[string]int)
	makerSet := make(map[string]bool)
	var totalHours float64

	for _, r := range resolved {
		quantityTotal += r.SourcePlan.QuantityTotal
		finalQuantity += r.SourcePlan.FinalQuantity
		if r.PlannedStart.Before(minStart) {
			minStart = r.PlannedStart
		}
		if r.PlannedEnd.After(maxEnd) {
			maxEnd = r.PlannedEnd
		}
		articleCounts[r.SourcePlan.ArticleNr]++
		totalHours += r.PlannedEnd.Sub(r.PlannedStart).Hours()
		for _, m := range splitMakerCodes(r.SourcePlan.MakerCode) {
			makerSet[m] = true
		}
	}

	if len(articleCounts) > 1 {
		log.Printf("splitter: feeder group %s spans %d distinct products", feeder, len(articleCounts))
		s.warnings = append(s.warnings, &ResourceConflictResidual{
			WorkOrderNr: feederWorkOrderNr,
			Reason:      fmt.Sprintf("feeder group contains %d distinct products", len(articleCounts)),
		})
	}

	rate := 0.0
	if totalHours > 0 {
		rate = float64(quantityTotal) / totalHours
	}

	associatedMakers := make([]string, 0, len(makerSet))
	for m := range makerSet {
		associatedMakers = append(associatedMakers, m)
	}
	sort.Strings(associatedMakers)

	feederOrder := SplitOrder{
		WorkOrderNr:            feederWorkOrderNr,
		WorkOrderType:          WorkOrderTypeFeeding,
		SourcePlanNr:           resolved[0].SourcePlan.WorkOrderNr,
		ArticleNr:              resolved[0].SourcePlan.ArticleNr,
		FeederCode:             feeder,
		QuantityTotal:          quantityTotal,
		FinalQuantity:          finalQuantity,
		PlannedStart:           minStart,
		PlannedEnd:             maxEnd,
		AssociatedMakers:       associatedMakers,
		TobaccoConsumptionRate: rate,
	}

	out := []SplitOrder{feederOrder}

	for _, r := range resolved {
		out = append(out, s.emitPackers(r, feederWorkOrderNr)...)
	}

	return out
}

// emitPackers implements the PackerOrders half of §4.3 step 3: one packer
// per maker code in the plan's maker_code list, sharing the remainder on
// the first.
func (s *Splitter) emitPackers(r ResolvedFeederInterval, feederWorkOrderNr string) []SplitOrder {
	makers := splitMakerCodes(r.SourcePlan.MakerCode)
	k := len(makers)
	if k == 0 {
		return nil
	}

	var out []SplitOrder
	for i, maker := range makers {
		qty := r.SourcePlan.QuantityTotal / k
		final := r.SourcePlan.FinalQuantity / k
		if i == 0 {
			qty += r.SourcePlan.QuantityTotal % k
			final += r.SourcePlan.FinalQuantity % k
		}

		var warnings []string
		if s.relations != nil {
			if !s.relationExists(r.SourcePlan.FeederCode, maker) {
				warnings = append(warnings, fmt.Sprintf("no machine relation configured for feeder %s / maker %s", r.SourcePlan.FeederCode, maker))
			}
		}

		order := SplitOrder{
			WorkOrderNr:      s.nextPackerNr(),
			WorkOrderType:    WorkOrderTypePacking,
			SourcePlanNr:     r.SourcePlan.WorkOrderNr,
			ArticleNr:        r.SourcePlan.ArticleNr,
			MakerCode:        maker,
			QuantityTotal:    qty,
			FinalQuantity:    final,
			PlannedStart:     r.PlannedStart,
			PlannedEnd:       r.PlannedEnd,
			SplitSequence:    i + 1,
			TotalMakers:      k,
			InputPlanID:      feederWorkOrderNr,
			ScheduleAdjusted: r.ScheduleAdjusted,
			Warnings:         warnings,
		}
		out = append(out, order)
	}
	return out
}

func (s *Splitter) relationExists(feederCode, makerCode string) bool {
	for _, rel := range s.relations.MachineRelations(feederCode) {
		if rel.MakerCode == makerCode {
			return true
		}
	}
	return false
}

// splitMakerCodes splits a maker_code field on ',' or ';' and trims each.
func splitMakerCodes(makerCode string) []string {
	fields := strings.FieldsFunc(makerCode, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.TrimSpace(f)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *Splitter) nextFeederNr() string {
	nr := fmt.Sprintf("FD%s%04d", s.runDate.Format("20060102150405"), s.seq)
	s.seq++
	return nr
}

func (s *Splitter) nextPackerNr() string {
	nr := fmt.Sprintf("PK%s%04d", s.runDate.Format("20060102150405"), s.seq)
	s.seq++
	return nr
}
