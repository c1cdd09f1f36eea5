package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
)

// GetFilterSummary renders a one-line description of a result list and the
// criteria that were supplied, e.g.
//
//	3 araç bulundu | Bütçe: 1.0M - 1.25M TL | Kasa: SUV | Yakıt: Elektrik
func GetFilterSummary(criteria catalog.Criteria, results []catalog.ScoredEntry) string {
	parts := []string{fmt.Sprintf("%d araç bulundu", len(results))}

	if criteria.HasBudget() {
		band := RoundBudgetToRange(*criteria.Budget)
		parts = append(parts, fmt.Sprintf("Bütçe: %.1fM - %.2fM TL", millions(band.Min, 1), millions(band.Max, 2)))
	}
	if body := strings.TrimSpace(criteria.Body); body != "" {
		parts = append(parts, "Kasa: "+body)
	}
	if fuel := strings.TrimSpace(criteria.Fuel); fuel != "" {
		parts = append(parts, "Yakıt: "+fuel)
	}
	if len(criteria.Usage) > 0 {
		parts = append(parts, "Kullanım: "+strings.Join(criteria.Usage, ", "))
	}
	if len(criteria.Priorities) > 0 {
		parts = append(parts, "Öncelikler: "+strings.Join(criteria.Priorities, ", "))
	}

	return strings.Join(parts, " | ")
}

// millions converts TRY to millions, rounding half away from zero
// (1_250_000 at one decimal is 1.3).
func millions(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v/1_000_000*scale) / scale
}
