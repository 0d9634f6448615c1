package scheduling

import "time"

// SpecialBrandLiquunNewIndoCN and SpecialBrandLiquunNewIndoHalfwidth are the
// two encodings of the one special brand article.nr that currently exists
// (full-width and half-width parentheses both appear in source spreadsheets).
const (
	SpecialBrandLiquunNewIndoCN         = "利群（新版印尼）"
	SpecialBrandLiquunNewIndoHalfwidth  = "利群(新版印尼)"
)

// Config holds the stage enable flags and tunables from spec.md §6.5.
type Config struct {
	MergeEnabled      bool
	SplitEnabled      bool
	CorrectionEnabled bool
	ParallelEnabled   bool

	SpecialBrands map[string]bool

	ShiftClampMaxHours        float64
	SetupMinutesDefault       int
	ChangeoverMinutesDefault  int
	SpeedToleranceMinutes     float64

	// Deadline bounds the overall orchestrator run (§5). Zero means the
	// default of 1 hour.
	Deadline time.Duration
}

// DefaultConfig returns the configuration defaults documented in spec.md
// §6.5.
func DefaultConfig() Config {
	return Config{
		MergeEnabled:      true,
		SplitEnabled:      true,
		CorrectionEnabled: true,
		ParallelEnabled:   true,
		SpecialBrands: map[string]bool{
			SpecialBrandLiquunNewIndoCN:        true,
			SpecialBrandLiquunNewIndoHalfwidth: true,
		},
		ShiftClampMaxHours:       24,
		SetupMinutesDefault:      30,
		ChangeoverMinutesDefault: 15,
		SpeedToleranceMinutes:    30,
		Deadline:                 time.Hour,
	}
}

// IsSpecialBrand reports whether the given article never merges.
func (c Config) IsSpecialBrand(articleNr string) bool {
	return c.SpecialBrands[articleNr]
}
