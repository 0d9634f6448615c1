// Package scheduling implements the six-stage APS scheduling core: it turns
// raw decade-plan rows into MES-compliant feeder and packer work orders.
package scheduling

import "time"

// MachineType classifies a machine as a feeder (supplies shredded tobacco)
// or a maker/packer (forms and packages finished cigarettes).
type MachineType string

const (
	MachineTypeMaker  MachineType = "MAKER"
	MachineTypeFeeder MachineType = "FEEDER"
)

// WorkOrderType distinguishes packer and feeder orders from the Splitter
// onward.
type WorkOrderType string

const (
	WorkOrderTypePacking WorkOrderType = "PACKING"
	WorkOrderTypeFeeding WorkOrderType = "FEEDING"
)

// PlanRow is a raw row describing a quantity of product to be made in a
// time window, as extracted from an operational spreadsheet by the external
// importer. Rows are never mutated once created.
type PlanRow struct {
	WorkOrderNr    string
	ArticleNr      string
	PackageType    string
	Specification  string
	QuantityTotal  int
	FinalQuantity  int
	MakerCode      string // one code, or several separated by ',' or ';'
	FeederCode     string
	PlannedStart   time.Time
	PlannedEnd     time.Time
}

// PreprocessedPlan is a PlanRow after field mapping, type coercion, and
// validation (§4.1).
type PreprocessedPlan struct {
	WorkOrderNr     string
	ArticleNr       string
	ProductCode     string
	PackageType     string
	Specification   string
	QuantityTotal   int
	FinalQuantity   int
	MakerCode       string
	FeederCode      string
	MachineType     MachineType
	IsMultiMachine  bool
	PlannedStart    time.Time
	PlannedEnd      time.Time
}

// MergedPlan is a PreprocessedPlan, or the fusion of several that share
// month/product/maker/feeder (§4.2).
type MergedPlan struct {
	WorkOrderNr   string
	ArticleNr     string
	MakerCode     string
	FeederCode    string
	QuantityTotal int
	FinalQuantity int
	PlannedStart  time.Time
	PlannedEnd    time.Time
	IsMerged      bool
	MergedFrom    []string
	MergedCount   int
}

// ResolvedFeederInterval is an emitted-order interval booked on a feeder
// after §4.3 step 2 conflict resolution.
type ResolvedFeederInterval struct {
	SourcePlan       MergedPlan
	PlannedStart     time.Time
	PlannedEnd       time.Time
	ScheduleAdjusted bool
	AdjustmentReason string
}

// SplitOrder is the common shape produced by the Splitter for both its
// PackerOrder and FeederOrder variants (§4.3). Which variant a given value
// represents is determined by WorkOrderType.
type SplitOrder struct {
	WorkOrderNr   string
	WorkOrderType WorkOrderType
	SourcePlanNr  string // the MergedPlan.WorkOrderNr this order was split from

	ArticleNr     string
	MakerCode     string // PackerOrder: exactly one code
	FeederCode    string // FeederOrder: exactly one code

	QuantityTotal int
	FinalQuantity int
	PlannedStart  time.Time
	PlannedEnd    time.Time

	// PackerOrder-only fields.
	SplitSequence int
	TotalMakers   int
	InputPlanID   string // work order nr of the feeder order feeding this packer

	// FeederOrder-only fields.
	AssociatedMakers       []string
	TobaccoConsumptionRate float64

	ScheduleAdjusted bool
	Warnings         []string
}

// IsPacker reports whether this SplitOrder is a PackerOrder variant.
func (o SplitOrder) IsPacker() bool { return o.WorkOrderType == WorkOrderTypePacking }

// IsFeeder reports whether this SplitOrder is a FeederOrder variant.
func (o SplitOrder) IsFeeder() bool { return o.WorkOrderType == WorkOrderTypeFeeding }

// TimeCorrectedOrder is a SplitOrder with possibly-shifted times and audit
// flags recording why (§4.4).
type TimeCorrectedOrder struct {
	SplitOrder

	SpeedAdjusted       bool
	SpeedAdjustmentHours float64
	OriginalPlannedEnd  time.Time

	MaintenanceAdjusted         bool
	MaintenanceAdjustmentHours  float64
	MaintenanceConflictsResolved int

	ShiftAdjusted      bool
	DurationAdjusted   bool
	CrossShiftAllowed  bool

	CorrectionFailed bool
	CorrectionError  string
}

// SynchronisedOrder is a TimeCorrectedOrder annotated with its parallel
// synchronisation group (§4.5).
type SynchronisedOrder struct {
	TimeCorrectedOrder

	SyncGroupID       string
	IsSynchronized    bool
	SyncSequence      int
	TotalSyncMachines int
}

// InputBatch is the data carrier on an HJB order referencing its upstream
// HWS order.
type InputBatch struct {
	InputPlanID string
}

// MesOrderKind distinguishes the two MES wire-contract variants.
type MesOrderKind string

const (
	MesOrderHWS MesOrderKind = "HWS" // feeder
	MesOrderHJB MesOrderKind = "HJB" // packer
)

// MesOrder is the final pipeline output, matching the MES wire contract
// (§3.1, §6.2).
type MesOrder struct {
	PlanID          string
	Kind            MesOrderKind
	ProductionLine  string // feeder_code or maker_code
	MaterialCode    string // article_nr
	Quantity        int
	Unit            string // "公斤" for HWS, "箱" for HJB
	PlanStartTime   time.Time
	PlanEndTime     time.Time
	IsBackup        bool
	InputBatch      *InputBatch // HJB only
	OrderType       string      // "" normally, "FALLBACK" on sequence failure
	SourceWorkOrder string      // original work_order_nr this was generated from
}

// FormatPlanDate renders the MES wire-contract plan_date (yyyy/MM/dd).
func (o MesOrder) FormatPlanDate() string {
	return o.PlanStartTime.Format("2006/01/02")
}

// FormatPlanStartTime renders the MES wire-contract plan_start_time.
func (o MesOrder) FormatPlanStartTime() string {
	return o.PlanStartTime.Format("2006/01/02 15:04:05")
}

// FormatPlanEndTime renders the MES wire-contract plan_end_time.
func (o MesOrder) FormatPlanEndTime() string {
	return o.PlanEndTime.Format("2006/01/02 15:04:05")
}

// ScheduleStatus is the lifecycle status of a ScheduleSummary record.
type ScheduleStatus string

const ScheduleStatusCompleted ScheduleStatus = "COMPLETED"

// ScheduleSummary is a per-merged-plan gantt-friendly rollup persisted
// alongside MES orders (§3.1).
type ScheduleSummary struct {
	WorkOrderNr    string
	ArticleNr      string
	FinalQuantity  int
	QuantityTotal  int
	MakerCode      string
	FeederCode     string
	PlannedStart   time.Time
	PlannedEnd     time.Time
	TaskID         string
	ScheduleStatus ScheduleStatus
}
