package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
)

// Score weights.
const (
	ScoreBudgetInRange = 100
	ScoreBudgetNear    = 50
	ScoreBodyExact     = 80
	ScoreBodySimilar   = 40
	ScoreFuelExact     = 80
	ScoreFuelPartial   = 40
	ScorePerTag        = 20
)

// Tier identifies which selection strategy produced a result list.
type Tier string

const (
	// TierThreshold: entries that reached the minimum score.
	TierThreshold Tier = "threshold"
	// TierBudget: nothing passed the threshold; entries priced inside the expanded budget band.
	TierBudget Tier = "budget"
	// TierTop: the highest scoring entries regardless of threshold.
	TierTop Tier = "top"
)

// Config tunes selection. The defaults are the production contract; changing
// them changes which cars are returned.
type Config struct {
	// MinScore is the acceptance threshold for the primary tier
	MinScore int
	// FallbackLimit caps the top-N fallback tier
	FallbackLimit int
}

// DefaultConfig returns the standard selection settings.
func DefaultConfig() Config {
	return Config{
		MinScore:      20,
		FallbackLimit: 5,
	}
}

// similarBodies is keyed by the requested body style. The relation is
// directional: a Sedan request accepts Station, a Station request accepts
// only Sedan.
var similarBodies = map[string][]string{
	"suv":       {"crossover"},
	"crossover": {"suv"},
	"sedan":     {"hatchback", "station"},
	"hatchback": {"sedan"},
	"station":   {"sedan"},
}

// Matcher ranks a fixed catalog snapshot. It holds no mutable state after
// construction and is safe for concurrent use.
type Matcher struct {
	entries []catalog.Entry
	tagSets []map[string]struct{}
	config  Config
}

// NewMatcher creates a matcher over a copy of entries. Tags are compared as
// given, so callers should normalize them first (see tags.EnrichEntry).
func NewMatcher(entries []catalog.Entry, cfg Config) *Matcher {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultConfig().MinScore
	}
	if cfg.FallbackLimit <= 0 {
		cfg.FallbackLimit = DefaultConfig().FallbackLimit
	}

	m := &Matcher{
		entries: make([]catalog.Entry, len(entries)),
		tagSets: make([]map[string]struct{}, len(entries)),
		config:  cfg,
	}
	for i, e := range entries {
		m.entries[i] = e.Clone()
		set := make(map[string]struct{}, len(e.Tags))
		for _, t := range e.Tags {
			set[foldText(t)] = struct{}{}
		}
		m.tagSets[i] = set
	}
	return m
}

// Len returns the catalog size.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the catalog snapshot.
func (m *Matcher) Entries() []catalog.Entry {
	out := make([]catalog.Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Clone()
	}
	return out
}

// Filter scores every entry and returns the selected list, highest score first.
func (m *Matcher) Filter(criteria catalog.Criteria) []catalog.ScoredEntry {
	results, _ := m.FilterWithTier(criteria)
	return results
}

// FilterWithTier is Filter that also reports which tier produced the list.
func (m *Matcher) FilterWithTier(criteria catalog.Criteria) ([]catalog.ScoredEntry, Tier) {
	scored := make([]catalog.ScoredEntry, len(m.entries))
	for i := range m.entries {
		scored[i] = m.score(i, criteria)
	}

	var selected []catalog.ScoredEntry
	tier := TierThreshold
	for _, s := range scored {
		if s.MatchScore >= m.config.MinScore {
			selected = append(selected, s)
		}
	}

	if len(selected) == 0 && criteria.HasBudget() {
		tier = TierBudget
		band := RoundBudgetToRange(*criteria.Budget).Expanded()
		for _, s := range scored {
			if band.Contains(s.PriceTRY) {
				selected = append(selected, s)
			}
		}
	}

	if len(selected) == 0 {
		tier = TierTop
		ranked := append([]catalog.ScoredEntry(nil), scored...)
		sortByScore(ranked)
		if len(ranked) > m.config.FallbackLimit {
			ranked = ranked[:m.config.FallbackLimit]
		}
		selected = ranked
	}

	sortByScore(selected)
	if selected == nil {
		selected = []catalog.ScoredEntry{}
	}
	return selected, tier
}

// score computes the additive score of entry i. Budget, body and fuel each
// contribute at most one tier; tags add up.
func (m *Matcher) score(i int, criteria catalog.Criteria) catalog.ScoredEntry {
	entry := m.entries[i]
	out := catalog.ScoredEntry{Entry: entry.Clone()}

	if criteria.HasBudget() {
		band := RoundBudgetToRange(*criteria.Budget)
		switch {
		case band.Contains(entry.PriceTRY):
			out.MatchScore += ScoreBudgetInRange
			out.MatchDetails.Budget = true
		case math.Abs(entry.PriceTRY-band.Max) <= nearBandTolerance*band.Max:
			out.MatchScore += ScoreBudgetNear
			out.MatchDetails.Budget = true
		}
	}

	if body := normalizeBody(criteria.Body); body != "" {
		carBody := normalizeBody(entry.Body)
		switch {
		case carBody == body:
			out.MatchScore += ScoreBodyExact
			out.MatchDetails.Body = true
		case isSimilarBody(body, carBody):
			out.MatchScore += ScoreBodySimilar
			out.MatchDetails.Body = true
		}
	}

	if fuel := normalizeFuel(criteria.Fuel); fuel != "" {
		carFuel := normalizeFuel(entry.Fuel)
		switch {
		case carFuel == fuel:
			out.MatchScore += ScoreFuelExact
			out.MatchDetails.Fuel = true
		case isPartialFuel(fuel, carFuel):
			out.MatchScore += ScoreFuelPartial
			out.MatchDetails.Fuel = true
		}
	}

	for _, wanted := range criteria.WantedTags() {
		if _, ok := m.tagSets[i][foldText(wanted)]; ok {
			out.MatchScore += ScorePerTag
			out.MatchDetails.Tags++
		}
	}

	return out
}

// FilterCars ranks entries against criteria with the default configuration.
func FilterCars(entries []catalog.Entry, criteria catalog.Criteria) []catalog.ScoredEntry {
	return NewMatcher(entries, DefaultConfig()).Filter(criteria)
}

var turkishI = strings.NewReplacer("İ", "i", "I", "i", "ı", "i")

// foldText trims and lowercases, ignoring the dot on i so Turkish uppercase
// tags ("KIŞ ŞARTLARI") compare equal to their lowercase form.
func foldText(s string) string {
	return strings.ToLower(turkishI.Replace(strings.TrimSpace(s)))
}

func normalizeBody(body string) string {
	return foldText(body)
}

func isSimilarBody(wanted, carBody string) bool {
	if carBody == "" {
		return false
	}
	for _, b := range similarBodies[wanted] {
		if b == carBody {
			return true
		}
	}
	return false
}

// normalizeFuel lowercases and treats "elektrikli" as "elektrik".
func normalizeFuel(fuel string) string {
	f := foldText(fuel)
	if f == "elektrikli" {
		return "elektrik"
	}
	return f
}

func isPartialFuel(wanted, carFuel string) bool {
	return (wanted == "elektrik" && carFuel == "hibrit") ||
		(wanted == "hibrit" && carFuel == "elektrik")
}

// sortByScore orders by descending score; equal scores keep catalog order.
func sortByScore(entries []catalog.ScoredEntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].MatchScore > entries[b].MatchScore
	})
}
