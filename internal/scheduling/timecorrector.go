package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// TimeCorrector adjusts work-order times for machine-speed differences,
// maintenance windows, and shift calendars (§4.4).
type TimeCorrector struct {
	config  Config
	refData ReferenceDataPort
}

// NewTimeCorrector creates a TimeCorrector. refData may be nil, in which
// case every substep is skipped (treated as reference data missing).
func NewTimeCorrector(config Config, refData ReferenceDataPort) *TimeCorrector {
	return &TimeCorrector{config: config, refData: refData}
}

// Correct applies all three time-correction substeps to every order; with
// CorrectionEnabled false, orders pass through unchanged. Missing reference
// data skips only the affected substep. A panic inside a substep stops the
// remaining substeps for that order, which is still emitted with
// CorrectionFailed set (§4.4, §7).
func (c *TimeCorrector) Correct(orders []SplitOrder) []TimeCorrectedOrder {
	out := make([]TimeCorrectedOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, c.correctOne(o))
	}
	return out
}

func (c *TimeCorrector) correctOne(o SplitOrder) (result TimeCorrectedOrder) {
	result = TimeCorrectedOrder{SplitOrder: o}

	defer func() {
		if r := recover(); r != nil {
			result.CorrectionFailed = true
			result.CorrectionError = fmt.Sprintf("panic during time correction: %v", r)
		}
	}()

	if !c.config.CorrectionEnabled {
		return result
	}
	if c.refData != nil {
		c.correctSpeed(&result)
		c.correctMaintenance(&result)
	}
	c.correctShift(&result)

	return result
}

// machineCodeOf returns the machine this order is assigned to: maker for
// packer orders, feeder for feeder orders.
func machineCodeOf(o SplitOrder) string {
	if o.IsPacker() {
		return o.MakerCode
	}
	return o.FeederCode
}

// correctSpeed implements §4.4.1: speed-based duration recomputation.
func (c *TimeCorrector) correctSpeed(o *TimeCorrectedOrder) {
	machine := machineCodeOf(o.SplitOrder)
	if machine == "" || o.ArticleNr == "" || o.FinalQuantity == 0 {
		return
	}

	speed, ok := SpeedLookup(c.refData, machine, o.ArticleNr)
	if !ok {
		return
	}

	efficiency := speed.EfficiencyRate
	if efficiency > 1 {
		efficiency = efficiency / 100
	}

	effectiveCapacity := speed.Speed * efficiency
	if effectiveCapacity <= 0 {
		return
	}

	productionHours := float64(o.FinalQuantity) / effectiveCapacity

	setupMinutes := speed.SetupMinutes
	if setupMinutes == 0 {
		setupMinutes = c.config.SetupMinutesDefault
	}
	changeoverMinutes := speed.ChangeoverMinutes
	if changeoverMinutes == 0 {
		changeoverMinutes = c.config.ChangeoverMinutesDefault
	}
	totalSetupHours := float64(setupMinutes+changeoverMinutes) / 60.0

	calculatedEnd := o.PlannedStart.Add(time.Duration((productionHours + totalSetupHours) * float64(time.Hour)))

	diff := calculatedEnd.Sub(o.PlannedEnd)
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Duration(c.config.SpeedToleranceMinutes*float64(time.Minute)) {
		o.OriginalPlannedEnd = o.PlannedEnd
		o.PlannedEnd = calculatedEnd
		o.SpeedAdjusted = true
		o.SpeedAdjustmentHours = calculatedEnd.Sub(o.OriginalPlannedEnd).Hours()
	}
}

// correctMaintenance implements §4.4.2: maintenance avoidance. Conflicts
// are processed in calendar order; each shift may create a new conflict
// that is re-evaluated within the same pass.
func (c *TimeCorrector) correctMaintenance(o *TimeCorrectedOrder) {
	machine := machineCodeOf(o.SplitOrder)
	if machine == "" {
		return
	}

	windows := c.refData.MaintenanceWindows(machine)
	if len(windows) == 0 {
		return
	}

	active := make([]MaintenanceWindow, 0, len(windows))
	for _, w := range windows {
		if w.Active() {
			active = append(active, w)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].MaintStartTime.Before(active[j].MaintStartTime)
	})

	resolved := 0
	totalShiftHours := 0.0

	for pass := 0; pass < len(active)+1; pass++ {
		conflict, found := findConflict(active, o.PlannedStart, o.PlannedEnd)
		if !found {
			break
		}

		duration := o.PlannedEnd.Sub(o.PlannedStart)

		if conflict.IsMajorOrOverhaul() {
			newStart := conflict.MaintEndTime
			newEnd := newStart.Add(duration)
			totalShiftHours += newEnd.Sub(o.PlannedEnd).Hours()
			o.PlannedStart = newStart
			o.PlannedEnd = newEnd
			resolved++
			continue
		}

		// Minor maintenance: compress if the order starts before the
		// maintenance and at least 2 hours of work fit before it;
		// otherwise shift past it.
		fitsBefore := o.PlannedStart.Before(conflict.MaintStartTime) &&
			conflict.MaintStartTime.Sub(o.PlannedStart) >= 2*time.Hour
		if fitsBefore {
			totalShiftHours += conflict.MaintStartTime.Sub(o.PlannedEnd).Hours()
			o.PlannedEnd = conflict.MaintStartTime
			resolved++
			continue
		}

		newStart := conflict.MaintEndTime
		newEnd := newStart.Add(duration)
		totalShiftHours += newEnd.Sub(o.PlannedEnd).Hours()
		o.PlannedStart = newStart
		o.PlannedEnd = newEnd
		resolved++
	}

	if resolved > 0 {
		o.MaintenanceAdjusted = true
		o.MaintenanceAdjustmentHours = totalShiftHours
		o.MaintenanceConflictsResolved = resolved
	}
}

func findConflict(windows []MaintenanceWindow, start, end time.Time) (MaintenanceWindow, bool) {
	for _, w := range windows {
		if strictOverlap(start, end, w.MaintStartTime, w.MaintEndTime) {
			return w, true
		}
	}
	return MaintenanceWindow{}, false
}

func strictOverlap(start1, end1, start2, end2 time.Time) bool {
	return !(end1.Before(start2) || end1.Equal(start2) || end2.Before(start1) || end2.Equal(start1))
}

// correctShift implements §4.4.3: shift clamping.
func (c *TimeCorrector) correctShift(o *TimeCorrectedOrder) {
	if c.refData == nil {
		return
	}
	shifts := c.refData.Shifts()
	if len(shifts) == 0 {
		return
	}

	shift, inside := findContainingShift(shifts, o.PlannedStart)
	if !inside {
		nextStart, ok := nextShiftStart(shifts, o.PlannedStart)
		if !ok {
			return
		}
		duration := o.PlannedEnd.Sub(o.PlannedStart)
		o.PlannedStart = nextStart
		o.PlannedEnd = nextStart.Add(duration)
		o.ShiftAdjusted = true
		shift, inside = findContainingShift(shifts, o.PlannedStart)
		if !inside {
			return
		}
	}

	duration := o.PlannedEnd.Sub(o.PlannedStart)
	maxDuration := time.Duration(c.config.ShiftClampMaxHours * float64(time.Hour))

	shiftEnd := shiftEndOnDay(shift, o.PlannedStart)
	if o.PlannedEnd.After(shiftEnd) {
		if duration <= maxDuration {
			o.PlannedEnd = shiftEnd
			o.DurationAdjusted = true
		} else {
			o.CrossShiftAllowed = true
		}
	}
}

// shiftEndOnDay resolves a shift's end time relative to the day `start`
// falls on, handling the "24:00 means midnight of the next day" rule and
// shifts that wrap past midnight.
func shiftEndOnDay(shift Shift, start time.Time) time.Time {
	startMinutes := parseHHMM(shift.StartTime)
	endMinutes := parseHHMM(shift.EndTime)

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	if shift.EndTime == "24:00" {
		return dayStart.Add(24 * time.Hour)
	}
	if endMinutes <= startMinutes {
		// Start in the after-midnight part of a wrapping shift: it ends today.
		if start.Sub(dayStart) < time.Duration(endMinutes)*time.Minute {
			return dayStart.Add(time.Duration(endMinutes) * time.Minute)
		}
		return dayStart.Add(24*time.Hour + time.Duration(endMinutes)*time.Minute)
	}
	return dayStart.Add(time.Duration(endMinutes) * time.Minute)
}

// findContainingShift returns the shift whose [start,end) window contains
// t, accounting for overnight-wrapping shifts.
func findContainingShift(shifts []Shift, t time.Time) (Shift, bool) {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	minutesOfDay := t.Sub(dayStart).Minutes()

	for _, s := range shifts {
		startMin := float64(parseHHMM(s.StartTime))
		endMin := float64(parseHHMM(s.EndTime))
		if s.EndTime == "24:00" {
			endMin = 24 * 60
		}

		if endMin <= startMin {
			// Wraps past midnight: [start,1440) ∪ [0,end)
			if minutesOfDay >= startMin || minutesOfDay < endMin {
				return s, true
			}
		} else if minutesOfDay >= startMin && minutesOfDay < endMin {
			return s, true
		}
	}
	return Shift{}, false
}

// nextShiftStart finds the next shift start at or after t, advancing to
// the following day's first shift if none remain today.
func nextShiftStart(shifts []Shift, t time.Time) (time.Time, bool) {
	if len(shifts) == 0 {
		return time.Time{}, false
	}

	sorted := make([]Shift, len(shifts))
	copy(sorted, shifts)
	sort.Slice(sorted, func(i, j int) bool {
		return parseHHMM(sorted[i].StartTime) < parseHHMM(sorted[j].StartTime)
	})

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	minutesOfDay := t.Sub(dayStart).Minutes()

	for _, s := range sorted {
		startMin := float64(parseHHMM(s.StartTime))
		if startMin >= minutesOfDay {
			return dayStart.Add(time.Duration(startMin) * time.Minute), true
		}
	}

	// No shift left today: roll to tomorrow's first shift.
	first := sorted[0]
	return dayStart.Add(24*time.Hour + time.Duration(parseHHMM(first.StartTime))*time.Minute), true
}

// parseHHMM parses "HH:MM" into minutes since midnight. "24:00" parses to
// 1440.
func parseHHMM(hhmm string) int {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0
	}
	h := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	m := int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
	return h*60 + m
}
