package scheduling

import (
	"strings"
)

// PreprocessReport is the result of running the Preprocessor over a batch
// of raw rows (§4.1).
type PreprocessReport struct {
	Processed []PreprocessedPlan
	Errors    []error
	Rejected  int
}

// Preprocess normalises and validates raw plan rows. It never aborts: every
// non-empty row either becomes a PreprocessedPlan or contributes a recorded
// error; fully empty rows are dropped without an error.
func Preprocess(rows []PlanRow) PreprocessReport {
	report := PreprocessReport{
		Processed: make([]PreprocessedPlan, 0, len(rows)),
	}

	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		if strings.TrimSpace(row.WorkOrderNr) == "" {
			report.Errors = append(report.Errors, &ValidationError{
				WorkOrderNr: row.WorkOrderNr,
				Reason:      "work_order_nr is blank",
			})
			report.Rejected++
			continue
		}

		plan := PreprocessedPlan{
			WorkOrderNr:    strings.TrimSpace(row.WorkOrderNr),
			ArticleNr:      row.ArticleNr,
			ProductCode:    row.ArticleNr,
			PackageType:    row.PackageType,
			Specification:  row.Specification,
			QuantityTotal:  coerceQuantity(row.QuantityTotal),
			FinalQuantity:  coerceQuantity(row.FinalQuantity),
			MakerCode:      row.MakerCode,
			FeederCode:     row.FeederCode,
			MachineType:    inferMachineType(row.MakerCode),
			IsMultiMachine: strings.Contains(row.MakerCode, ","),
			PlannedStart:   row.PlannedStart,
			PlannedEnd:     row.PlannedEnd,
		}

		report.Processed = append(report.Processed, plan)
	}

	return report
}

// isEmptyRow reports whether work_order_nr, article_nr, and quantity_total
// are all simultaneously absent/blank/zero.
func isEmptyRow(row PlanRow) bool {
	return strings.TrimSpace(row.WorkOrderNr) == "" &&
		strings.TrimSpace(row.ArticleNr) == "" &&
		row.QuantityTotal == 0
}

// inferMachineType classifies maker_code: starting with 'C' or containing
// any digit means MAKER; any other non-blank code means FEEDER; a blank
// maker_code defaults to MAKER (§4.1 step 3).
func inferMachineType(makerCode string) MachineType {
	trimmed := strings.TrimSpace(makerCode)
	if trimmed == "" {
		return MachineTypeMaker
	}
	if strings.HasPrefix(trimmed, "C") {
		return MachineTypeMaker
	}
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			return MachineTypeMaker
		}
	}
	return MachineTypeFeeder
}

// coerceQuantity integer-coerces a quantity field; negative values coerce
// to zero per §4.1 step 4 (non-numeric inputs never reach this function
// since PlanRow already types the field as int, so only negativity needs
// guarding here).
func coerceQuantity(q int) int {
	if q < 0 {
		return 0
	}
	return q
}
