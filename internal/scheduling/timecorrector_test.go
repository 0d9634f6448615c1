package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReferenceData struct {
	speeds       map[string]MachineSpeed
	maintenance  map[string][]MaintenanceWindow
	shifts       []Shift
	relations    map[string][]MachineRelation
}

func newFakeReferenceData() *fakeReferenceData {
	return &fakeReferenceData{
		speeds:      make(map[string]MachineSpeed),
		maintenance: make(map[string][]MaintenanceWindow),
		relations:   make(map[string][]MachineRelation),
	}
}

func (f *fakeReferenceData) MachineSpeed(machineCode, articleNr string) (MachineSpeed, bool) {
	s, ok := f.speeds[machineCode+"|"+articleNr]
	return s, ok
}

func (f *fakeReferenceData) MaintenanceWindows(machineCode string) []MaintenanceWindow {
	return f.maintenance[machineCode]
}

func (f *fakeReferenceData) Shifts() []Shift { return f.shifts }

func (f *fakeReferenceData) MachineRelations(feederCode string) []MachineRelation {
	return f.relations[feederCode]
}

var _ ReferenceDataPort = (*fakeReferenceData)(nil)

// Scenario C: a maintenance window overlapping the planned window is
// avoided by shifting start to the window's end.
func TestTimeCorrector_AvoidsMajorMaintenanceWindow(t *testing.T) {
	refData := newFakeReferenceData()
	refData.maintenance["C1"] = []MaintenanceWindow{
		{
			MachineCode:     "C1",
			MaintStartTime:  mustParse(t, "2024-10-16 10:00"),
			MaintEndTime:    mustParse(t, "2024-10-16 12:00"),
			MaintenanceType: MaintenanceMajor,
			PlanStatus:      MaintenancePlanned,
		},
	}

	order := SplitOrder{
		WorkOrderNr:   "PK0001",
		WorkOrderType: WorkOrderTypePacking,
		MakerCode:     "C1",
		ArticleNr:     "ART1",
		QuantityTotal: 100,
		FinalQuantity: 100,
		PlannedStart:  mustParse(t, "2024-10-16 08:00"),
		PlannedEnd:    mustParse(t, "2024-10-16 12:00"),
	}

	c := NewTimeCorrector(DefaultConfig(), refData)
	results := c.Correct([]SplitOrder{order})

	a := assert.New(t)
	a.Len(results, 1)
	r := results[0]
	a.True(r.MaintenanceAdjusted)
	a.True(r.PlannedStart.Equal(mustParse(t, "2024-10-16 12:00")))
	a.True(r.PlannedEnd.Equal(mustParse(t, "2024-10-16 16:00")))
}

func TestTimeCorrector_SpeedAdjustmentRecomputesEnd(t *testing.T) {
	refData := newFakeReferenceData()
	refData.speeds["C1|ART1"] = MachineSpeed{
		MachineCode: "C1", ArticleNr: "ART1", Speed: 100, EfficiencyRate: 1,
	}

	order := SplitOrder{
		WorkOrderNr:   "PK0001",
		WorkOrderType: WorkOrderTypePacking,
		MakerCode:     "C1",
		ArticleNr:     "ART1",
		QuantityTotal: 1000,
		FinalQuantity: 1000,
		PlannedStart:  mustParse(t, "2024-10-16 08:00"),
		PlannedEnd:    mustParse(t, "2024-10-16 09:00"),
	}

	cfg := DefaultConfig()
	c := NewTimeCorrector(cfg, refData)
	results := c.Correct([]SplitOrder{order})

	a := assert.New(t)
	a.Len(results, 1)
	a.True(results[0].SpeedAdjusted)
	a.True(results[0].PlannedEnd.After(order.PlannedEnd))
}

func TestTimeCorrector_NilReferenceDataSkipsSpeedAndMaintenance(t *testing.T) {
	order := SplitOrder{
		WorkOrderNr:   "PK0001",
		WorkOrderType: WorkOrderTypePacking,
		MakerCode:     "C1",
		ArticleNr:     "ART1",
		QuantityTotal: 100,
		FinalQuantity: 100,
		PlannedStart:  mustParse(t, "2024-10-16 08:00"),
		PlannedEnd:    mustParse(t, "2024-10-16 12:00"),
	}

	c := NewTimeCorrector(DefaultConfig(), nil)
	results := c.Correct([]SplitOrder{order})

	a := assert.New(t)
	a.Len(results, 1)
	a.False(results[0].SpeedAdjusted)
	a.False(results[0].MaintenanceAdjusted)
	a.False(results[0].CorrectionFailed)
}
