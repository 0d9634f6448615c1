package scheduling

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mergedWorkOrderNrPattern = regexp.MustCompile(`^M\d{12}$`)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	require.NoError(t, err)
	return ts
}

// Scenario A: two compatible same-month plans fuse into one.
func TestMerger_FusesCompatiblePlans(t *testing.T) {
	plans := []PreprocessedPlan{
		{
			WorkOrderNr: "WO1", ArticleNr: "HNZJHYLC001", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 14:00"),
		},
		{
			WorkOrderNr: "WO2", ArticleNr: "HNZJHYLC001", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-16 14:00"), PlannedEnd: mustParse(t, "2024-10-16 20:00"),
		},
	}

	m := NewMerger(DefaultConfig(), mustParse(t, "2024-10-16 00:00"))
	merged := m.Merge(plans)

	require.Len(t, merged, 1)
	g := merged[0]
	assert.True(t, g.IsMerged)
	assert.Equal(t, 2, g.MergedCount)
	assert.Equal(t, 200, g.QuantityTotal)
	assert.Equal(t, 200, g.FinalQuantity)
	assert.True(t, g.PlannedStart.Equal(mustParse(t, "2024-10-16 08:00")))
	assert.True(t, g.PlannedEnd.Equal(mustParse(t, "2024-10-16 20:00")))
	assert.Regexp(t, mergedWorkOrderNrPattern, g.WorkOrderNr)
}

// Scenario F: rows spanning a month boundary never fuse.
func TestMerger_DoesNotFuseAcrossMonths(t *testing.T) {
	plans := []PreprocessedPlan{
		{
			WorkOrderNr: "WO1", ArticleNr: "HNZJHYLC001", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-10-31 20:00"), PlannedEnd: mustParse(t, "2024-10-31 23:00"),
		},
		{
			WorkOrderNr: "WO2", ArticleNr: "HNZJHYLC001", MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 100, FinalQuantity: 100,
			PlannedStart: mustParse(t, "2024-11-01 02:00"), PlannedEnd: mustParse(t, "2024-11-01 05:00"),
		},
	}

	m := NewMerger(DefaultConfig(), mustParse(t, "2024-10-31 00:00"))
	merged := m.Merge(plans)

	require.Len(t, merged, 2)
	for _, g := range merged {
		assert.False(t, g.IsMerged)
	}
}

func TestMerger_SpecialBrandNeverMerges(t *testing.T) {
	plans := []PreprocessedPlan{
		{
			WorkOrderNr: "WO1", ArticleNr: SpecialBrandLiquunNewIndoCN, MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 10, FinalQuantity: 10,
			PlannedStart: mustParse(t, "2024-10-16 08:00"), PlannedEnd: mustParse(t, "2024-10-16 10:00"),
		},
		{
			WorkOrderNr: "WO2", ArticleNr: SpecialBrandLiquunNewIndoCN, MakerCode: "C1", FeederCode: "F001",
			QuantityTotal: 10, FinalQuantity: 10,
			PlannedStart: mustParse(t, "2024-10-16 10:00"), PlannedEnd: mustParse(t, "2024-10-16 12:00"),
		},
	}

	m := NewMerger(DefaultConfig(), mustParse(t, "2024-10-16 00:00"))
	merged := m.Merge(plans)

	require.Len(t, merged, 2)
	for _, g := range merged {
		assert.False(t, g.IsMerged)
	}
}
