package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess_RejectsBlankWorkOrderNr(t *testing.T) {
	rows := []PlanRow{
		{WorkOrderNr: "", ArticleNr: "ART1", QuantityTotal: 10, PlannedStart: time.Now(), PlannedEnd: time.Now().Add(time.Hour)},
	}

	report := Preprocess(rows)

	assert.Empty(t, report.Processed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Rejected)

	var verr *ValidationError
	require.ErrorAs(t, report.Errors[0], &verr)
}

func TestPreprocess_SkipsFullyEmptyRows(t *testing.T) {
	rows := []PlanRow{{}}

	report := Preprocess(rows)

	assert.Empty(t, report.Processed)
	assert.Empty(t, report.Errors)
}

func TestPreprocess_NegativeQuantityCoercesToZero(t *testing.T) {
	rows := []PlanRow{
		{WorkOrderNr: "WO1", ArticleNr: "ART1", QuantityTotal: -5, FinalQuantity: -1},
	}

	report := Preprocess(rows)

	require.Len(t, report.Processed, 1)
	assert.Equal(t, 0, report.Processed[0].QuantityTotal)
	assert.Equal(t, 0, report.Processed[0].FinalQuantity)
}

func TestInferMachineType(t *testing.T) {
	cases := []struct {
		makerCode string
		want      MachineType
	}{
		{"", MachineTypeMaker},
		{"C1", MachineTypeMaker},
		{"F2", MachineTypeMaker},
		{"FEED", MachineTypeFeeder},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, inferMachineType(c.makerCode), "makerCode=%q", c.makerCode)
	}
}

func TestPreprocess_DetectsMultiMachine(t *testing.T) {
	rows := []PlanRow{
		{WorkOrderNr: "WO1", ArticleNr: "ART1", MakerCode: "C1,C2,C3", QuantityTotal: 10},
	}

	report := Preprocess(rows)

	require.Len(t, report.Processed, 1)
	assert.True(t, report.Processed[0].IsMultiMachine)
}
