package tags

import (
	"strings"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
)

// Normalizer maps free-text tags onto the canonical vocabulary.
// The tables are built once and never mutated, so a Normalizer is safe for
// concurrent use.
type Normalizer struct {
	aliases []alias
	exact   map[string][]string
	useless []string
}

var defaultNormalizer = NewNormalizer()

// NewNormalizer creates a normalizer with the built-in alias tables.
func NewNormalizer() *Normalizer {
	aliases := buildAliases()
	exact := make(map[string][]string, len(aliases))
	for i := range aliases {
		aliases[i].key = foldKey(aliases[i].key)
		a := aliases[i]
		if _, ok := exact[a.key]; !ok {
			exact[a.key] = a.tags
		}
	}
	return &Normalizer{
		aliases: aliases,
		exact:   exact,
		useless: buildUselessKeywords(),
	}
}

// MapTag maps a single tag. Resolution order: exact alias, substring alias
// (first declared wins), useless keyword (dropped), pass-through.
// The result is never nil.
func (n *Normalizer) MapTag(tag string) []string {
	key := foldKey(tag)
	if key == "" {
		return []string{}
	}

	if mapped, ok := n.exact[key]; ok {
		return copyTags(mapped)
	}

	for _, a := range n.aliases {
		if strings.Contains(key, a.key) || strings.Contains(a.key, key) {
			return copyTags(a.tags)
		}
	}

	for _, kw := range n.useless {
		if strings.Contains(key, kw) {
			return []string{}
		}
	}

	return []string{tag}
}

// NormalizeCarTags maps every tag, flattens, removes duplicates and empty
// strings. Output keeps first-seen order.
func (n *Normalizer) NormalizeCarTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		for _, mapped := range n.MapTag(tag) {
			if mapped == "" {
				continue
			}
			if _, ok := seen[mapped]; ok {
				continue
			}
			seen[mapped] = struct{}{}
			out = append(out, mapped)
		}
	}
	return out
}

// SuggestTagsFromCarData derives tags from structured fields only. It returns
// an empty slice when the entry carries no specs.
func (n *Normalizer) SuggestTagsFromCarData(entry catalog.Entry) []string {
	if entry.Specs == nil {
		return []string{}
	}

	var suggested []string
	add := func(tags ...string) {
		suggested = append(suggested, tags...)
	}

	if strings.Contains(foldKey(entry.Fuel), "elektrik") {
		add(LowConsumption)
	}

	if hp, ok := entry.Specs.HorsePower(); ok {
		if hp > 200 {
			add(Performance, Sport)
		}
		if hp < 120 {
			add(LowConsumption)
		}
	}

	switch foldKey(entry.Body) {
	case "suv":
		add(FamilyFocused, WinterReady)
	case "sedan":
		add(Comfort, CityDriving)
	case "hatchback":
		add(CityDriving, MixedUse)
	}

	if entry.Specs.HasADAS() {
		add(Safety, TechnologyADAS)
	}

	traction := foldKey(entry.Specs.Traction())
	if strings.Contains(traction, "awd") || strings.Contains(traction, "4wd") {
		add(WinterReady)
	}

	return dedupe(suggested)
}

// EnrichEntry returns a copy of entry with normalized tags. Entries whose
// tags normalize to nothing fall back to suggested tags.
func (n *Normalizer) EnrichEntry(entry catalog.Entry) catalog.Entry {
	out := entry.Clone()
	out.Tags = n.NormalizeCarTags(entry.Tags)
	if len(out.Tags) == 0 {
		out.Tags = n.SuggestTagsFromCarData(entry)
	}
	return out
}

// MapTag maps a single tag using the built-in tables.
func MapTag(tag string) []string {
	return defaultNormalizer.MapTag(tag)
}

// NormalizeCarTags normalizes tags using the built-in tables.
func NormalizeCarTags(tags []string) []string {
	return defaultNormalizer.NormalizeCarTags(tags)
}

// SuggestTagsFromCarData derives tags using the built-in rules.
func SuggestTagsFromCarData(entry catalog.Entry) []string {
	return defaultNormalizer.SuggestTagsFromCarData(entry)
}

// EnrichEntry normalizes an entry's tags using the built-in tables.
func EnrichEntry(entry catalog.Entry) catalog.Entry {
	return defaultNormalizer.EnrichEntry(entry)
}

// turkishI makes keys insensitive to the dot on i: İ, I and ı all become i,
// so "KIŞ ŞARTLARI", "ŞEHİR İÇİ" and "ELEKTRIK" meet the lowercase aliases.
var turkishI = strings.NewReplacer("İ", "i", "I", "i", "ı", "i")

// foldKey trims, lowercases and drops the dotted/dotless i distinction.
func foldKey(s string) string {
	return strings.ToLower(turkishI.Replace(strings.TrimSpace(s)))
}

func copyTags(tags []string) []string {
	return append([]string(nil), tags...)
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
