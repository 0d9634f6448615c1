package scheduling

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
)

const (
	unitHWS = "公斤"
	unitHJB = "箱"
)

// Generator materialises MES wire records and schedule summaries from
// synchronised orders (§4.6).
type Generator struct {
	sequence SequencePort
	warnings []error
}

// NewGenerator creates a Generator backed by the given sequence port.
func NewGenerator(sequence SequencePort) *Generator {
	return &Generator{sequence: sequence}
}

// Warnings returns every sequence-allocation-failure warning recorded
// during the most recent Generate call.
func (g *Generator) Warnings() []error { return g.warnings }

// Generate groups synchronised orders by their originating plan and emits
// one HWS record per distinct feeder, one HJB record per distinct maker,
// and one ScheduleSummary per (maker, feeder) pair (§4.6).
func (g *Generator) Generate(ctx context.Context, orders []SynchronisedOrder, taskID string) ([]MesOrder, []ScheduleSummary) {
	g.warnings = nil

	groups := make(map[string][]SynchronisedOrder)
	var order []string
	for _, o := range orders {
		key := o.SourcePlanNr
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], o)
	}

	var mesOrders []MesOrder
	var summaries []ScheduleSummary

	for _, key := range order {
		group := groups[key]
		mo, sm := g.generateGroup(ctx, key, group, taskID)
		mesOrders = append(mesOrders, mo...)
		summaries = append(summaries, sm...)
	}

	sort.Slice(mesOrders, func(i, j int) bool { return mesOrders[i].SourceWorkOrder < mesOrders[j].SourceWorkOrder })
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].WorkOrderNr < summaries[j].WorkOrderNr })

	return mesOrders, summaries
}

func (g *Generator) generateGroup(ctx context.Context, sourcePlanNr string, group []SynchronisedOrder, taskID string) ([]MesOrder, []ScheduleSummary) {
	feederByCode := make(map[string]SynchronisedOrder)
	var feederCodes []string
	makerByCode := make(map[string]SynchronisedOrder)
	var makerCodes []string

	for _, o := range group {
		if o.IsFeeder() {
			if _, ok := feederByCode[o.FeederCode]; !ok {
				feederCodes = append(feederCodes, o.FeederCode)
			}
			feederByCode[o.FeederCode] = o
		} else {
			if _, ok := makerByCode[o.MakerCode]; !ok {
				makerCodes = append(makerCodes, o.MakerCode)
			}
			makerByCode[o.MakerCode] = o
		}
	}
	sort.Strings(feederCodes)
	sort.Strings(makerCodes)

	var mesOrders []MesOrder

	hwsPlanIDByWorkOrder := make(map[string]string) // feeder work_order_nr -> plan_id
	var firstHWSPlanID string

	for _, feeder := range feederCodes {
		fo := feederByCode[feeder]
		planID, fallback := g.allocate(ctx, "HWS")
		mo := MesOrder{
			PlanID:          planID,
			Kind:            MesOrderHWS,
			ProductionLine:  fo.FeederCode,
			MaterialCode:    fo.ArticleNr,
			Quantity:        fo.QuantityTotal,
			Unit:            unitHWS,
			PlanStartTime:   fo.PlannedStart,
			PlanEndTime:     fo.PlannedEnd,
			SourceWorkOrder: sourcePlanNr,
		}
		if fallback {
			mo.OrderType = "FALLBACK"
		}
		mesOrders = append(mesOrders, mo)
		hwsPlanIDByWorkOrder[fo.WorkOrderNr] = planID
		if firstHWSPlanID == "" {
			firstHWSPlanID = planID
		}
	}

	for _, maker := range makerCodes {
		po := makerByCode[maker]
		planID, fallback := g.allocate(ctx, "HJB")

		inputPlanID := hwsPlanIDByWorkOrder[po.InputPlanID]
		if inputPlanID == "" {
			inputPlanID = firstHWSPlanID
		}

		mo := MesOrder{
			PlanID:          planID,
			Kind:            MesOrderHJB,
			ProductionLine:  po.MakerCode,
			MaterialCode:    po.ArticleNr,
			Quantity:        po.FinalQuantity,
			Unit:            unitHJB,
			PlanStartTime:   po.PlannedStart,
			PlanEndTime:     po.PlannedEnd,
			InputBatch:      &InputBatch{InputPlanID: inputPlanID},
			SourceWorkOrder: sourcePlanNr,
		}
		if fallback {
			mo.OrderType = "FALLBACK"
		}
		mesOrders = append(mesOrders, mo)
	}

	summaries := g.summarise(sourcePlanNr, group, makerCodes, feederCodes, taskID)

	return mesOrders, summaries
}

// allocate requests the next sequence value, falling back to a random
// 9-digit suffix and recording a SequenceAllocationFailure warning if the
// sequence service errors (§4.6, §7).
func (g *Generator) allocate(ctx context.Context, kind string) (string, bool) {
	if g.sequence != nil {
		next, err := g.sequence.Next(ctx, kind)
		if err == nil {
			return kind + fmt.Sprintf("%09d", next), false
		}
		log.Printf("generator: sequence allocation failed for %s: %v", kind, err)
		g.warnings = append(g.warnings, &SequenceAllocationFailure{Kind: kind, Err: err})
	} else {
		g.warnings = append(g.warnings, &SequenceAllocationFailure{Kind: kind, Err: fmt.Errorf("no sequence port configured")})
	}
	suffix := rand.Intn(1_000_000_000)
	return kind + fmt.Sprintf("%09d", suffix), true
}

// summarise implements the cartesian-product schedule-summary rule of
// §4.6: one row per (maker, feeder) pair for groups that contain a
// packing order.
func (g *Generator) summarise(sourcePlanNr string, group []SynchronisedOrder, makerCodes, feederCodes []string, taskID string) []ScheduleSummary {
	hasPacker := false
	var quantityTotal, finalQuantity int
	var minStart, maxEnd = group[0].PlannedStart, group[0].PlannedEnd
	var articleNr string

	for _, o := range group {
		if o.IsPacker() {
			hasPacker = true
			quantityTotal += o.QuantityTotal
			finalQuantity += o.FinalQuantity
			articleNr = o.ArticleNr
		}
		if o.PlannedStart.Before(minStart) {
			minStart = o.PlannedStart
		}
		if o.PlannedEnd.After(maxEnd) {
			maxEnd = o.PlannedEnd
		}
	}

	if !hasPacker || len(makerCodes) == 0 || len(feederCodes) == 0 {
		return nil
	}

	var summaries []ScheduleSummary
	for _, maker := range makerCodes {
		for _, feeder := range feederCodes {
			summaries = append(summaries, ScheduleSummary{
				WorkOrderNr:    sourcePlanNr,
				ArticleNr:      articleNr,
				FinalQuantity:  finalQuantity,
				QuantityTotal:  quantityTotal,
				MakerCode:      maker,
				FeederCode:     feeder,
				PlannedStart:   minStart,
				PlannedEnd:     maxEnd,
				TaskID:         taskID,
				ScheduleStatus: ScheduleStatusCompleted,
			})
		}
	}
	return summaries
}
