package scheduling

import "time"

// MaintenanceType classifies the severity of a maintenance window (§3.2).
type MaintenanceType string

const (
	MaintenanceRoutine  MaintenanceType = "routine"
	MaintenanceMajor    MaintenanceType = "major"
	MaintenanceOverhaul MaintenanceType = "overhaul"
)

// MaintenancePlanStatus is the lifecycle status of a maintenance window.
type MaintenancePlanStatus string

const (
	MaintenancePlanned    MaintenancePlanStatus = "PLANNED"
	MaintenanceInProgress MaintenancePlanStatus = "IN_PROGRESS"
)

// MachineSpeed is one (machine_code, article_nr) speed-table entry (§3.2).
type MachineSpeed struct {
	MachineCode        string
	ArticleNr          string
	Speed              float64 // pieces/hour
	EfficiencyRate     float64 // 0-1 or 0-100, see §4.4.1/§9 Open Question 3
	SetupMinutes       int
	ChangeoverMinutes  int
	EffectiveFrom      time.Time
	EffectiveTo        time.Time
}

// MaintenanceWindow is one maintenance_plans entry for a machine (§3.2).
type MaintenanceWindow struct {
	MachineCode     string
	MaintStartTime  time.Time
	MaintEndTime    time.Time
	MaintenanceType MaintenanceType
	PlanStatus      MaintenancePlanStatus
}

// Active reports whether the window is in a status that should be avoided
// (§4.4.2: PLANNED or IN_PROGRESS).
func (w MaintenanceWindow) Active() bool {
	return w.PlanStatus == MaintenancePlanned || w.PlanStatus == MaintenanceInProgress
}

// IsMajorOrOverhaul reports whether this window must never be overlapped
// (§3.3 maintenance disjointness invariant).
func (w MaintenanceWindow) IsMajorOrOverhaul() bool {
	return w.MaintenanceType == MaintenanceMajor || w.MaintenanceType == MaintenanceOverhaul
}

// Shift is one ordered shift entry from the plant's shift calendar (§3.2).
// EndTime may be "24:00" (midnight of the next day) or earlier than
// StartTime (a shift wrapping past midnight).
type Shift struct {
	Name      string
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM" or "24:00"
}

// MachineRelation records a feeder→maker priority pairing used for the
// Splitter's optional soft validation (§3.2, §4.3).
type MachineRelation struct {
	FeederCode string
	MakerCode  string
	Priority   int
}

// ReferenceDataPort is the read-only reference-data collaborator the core
// consumes (§6.3). Implementations must return an unambiguous "not found"
// (an empty slice / ok=false), never an error, for a missing entry.
type ReferenceDataPort interface {
	// MachineSpeed looks up the speed entry for (machineCode, articleNr).
	// Callers fall back to a machine-wide default and then a "*" wildcard
	// product-wide default per §4.4.1 when ok is false.
	MachineSpeed(machineCode, articleNr string) (MachineSpeed, bool)

	// MaintenanceWindows returns all maintenance windows for a machine,
	// in no particular order; callers sort by start time as §4.4.2
	// requires calendar-ordered processing.
	MaintenanceWindows(machineCode string) []MaintenanceWindow

	// Shifts returns the ordered list of configured shifts.
	Shifts() []Shift

	// MachineRelations returns the maker codes related to a feeder code,
	// sorted by ascending priority.
	MachineRelations(feederCode string) []MachineRelation
}

// SpeedLookup resolves a machine/article speed using the fallback chain of
// §4.4.1: exact (machine, article), then machine-wide default keyed by
// article "*", then product-wide default keyed by machine "*", then no
// speed at all.
func SpeedLookup(port ReferenceDataPort, machineCode, articleNr string) (MachineSpeed, bool) {
	if speed, ok := port.MachineSpeed(machineCode, articleNr); ok {
		return speed, true
	}
	if speed, ok := port.MachineSpeed(machineCode, "*"); ok {
		return speed, true
	}
	if speed, ok := port.MachineSpeed("*", articleNr); ok {
		return speed, true
	}
	return MachineSpeed{}, false
}
