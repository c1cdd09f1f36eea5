// Package matching scores catalog entries against user criteria and selects a
// ranked result list with tiered fallbacks.
package matching

import "math"

// BudgetRange is an inclusive price band in Turkish lira.
type BudgetRange struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Contains reports whether price lies inside the band, bounds included.
func (r BudgetRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// Expanded returns the relaxed band used by the budget-only fallback.
func (r BudgetRange) Expanded() BudgetRange {
	return BudgetRange{
		Name: r.Name,
		Min:  r.Min * expandedMinFactor,
		Max:  r.Max * expandedMaxFactor,
	}
}

const (
	expandedMinFactor = 0.8
	expandedMaxFactor = 1.3
	nearBandTolerance = 0.2
)

// budgetBands are ascending and non-overlapping except at shared edges.
var budgetBands = []BudgetRange{
	{Name: "A", Min: 500_000, Max: 1_000_000},
	{Name: "B", Min: 1_000_000, Max: 1_250_000},
	{Name: "C", Min: 1_250_000, Max: 1_500_000},
	{Name: "D", Min: 1_500_000, Max: 2_000_000},
	{Name: "E", Min: 2_000_000, Max: 5_000_000},
}

// BudgetBands returns the fixed budget bands in ascending order.
func BudgetBands() []BudgetRange {
	return append([]BudgetRange(nil), budgetBands...)
}

// RoundBudgetToRange returns the first band whose upper bound is at least the
// budget. Budgets above every band land in the top band. Negative and NaN
// budgets are clamped to zero and therefore land in the lowest band.
func RoundBudgetToRange(budget float64) BudgetRange {
	if math.IsNaN(budget) || budget < 0 {
		budget = 0
	}
	for _, band := range budgetBands {
		if budget <= band.Max {
			return band
		}
	}
	return budgetBands[len(budgetBands)-1]
}
