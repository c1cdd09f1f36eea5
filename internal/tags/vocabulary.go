// Package tags normalizes free-text catalog labels into the canonical usage and
// priority vocabularies and derives suggested labels from vehicle specs.
package tags

// Canonical usage tags.
const (
	CityDriving   = "Şehir içi"
	LongDistance  = "Uzun yol"
	MixedUse      = "Karma"
	WinterReady   = "Kış şartları"
	FamilyFocused = "Aile odaklı"
	Sport         = "Sport"
)

// Canonical priority tags.
const (
	Safety         = "Güvenlik"
	LowConsumption = "Düşük tüketim"
	Performance    = "Performans"
	Comfort        = "Konfor"
	TechnologyADAS = "Teknoloji/ADAS"
	LowMaintenance = "Uygun bakım"
)

var usageTags = []string{CityDriving, LongDistance, MixedUse, WinterReady, FamilyFocused, Sport}

var priorityTags = []string{Safety, LowConsumption, Performance, Comfort, TechnologyADAS, LowMaintenance}

// UsageTags returns the canonical usage vocabulary in display order.
func UsageTags() []string {
	return append([]string(nil), usageTags...)
}

// PriorityTags returns the canonical priority vocabulary in display order.
func PriorityTags() []string {
	return append([]string(nil), priorityTags...)
}

// IsCanonical reports whether tag is exactly one of the canonical labels.
func IsCanonical(tag string) bool {
	for _, t := range usageTags {
		if t == tag {
			return true
		}
	}
	for _, t := range priorityTags {
		if t == tag {
			return true
		}
	}
	return false
}

// alias maps a lowercase variant to the canonical tags it stands for.
type alias struct {
	key  string
	tags []string
}

// buildAliases returns the alias table. Order matters: substring matching
// picks the first alias that matches, so canonical names come first and
// longer phrases precede the shorter words they contain.
func buildAliases() []alias {
	return []alias{
		// canonical names map to themselves
		{"şehir içi", []string{CityDriving}},
		{"uzun yol", []string{LongDistance}},
		{"karma", []string{MixedUse}},
		{"kış şartları", []string{WinterReady}},
		{"aile odaklı", []string{FamilyFocused}},
		{"sport", []string{Sport}},
		{"güvenlik", []string{Safety}},
		{"düşük tüketim", []string{LowConsumption}},
		{"performans", []string{Performance}},
		{"konfor", []string{Comfort}},
		{"teknoloji/adas", []string{TechnologyADAS}},
		{"uygun bakım", []string{LowMaintenance}},

		// usage
		{"sehir ici", []string{CityDriving}},
		{"şehir", []string{CityDriving}},
		{"city", []string{CityDriving}},
		{"urban", []string{CityDriving}},
		{"kompakt", []string{CityDriving}},
		{"kolay park", []string{CityDriving}},
		{"uzun yolculuk", []string{LongDistance}},
		{"otoyol", []string{LongDistance}},
		{"highway", []string{LongDistance}},
		{"long distance", []string{LongDistance}},
		{"seyahat", []string{LongDistance}},
		{"karışık", []string{MixedUse}},
		{"mixed", []string{MixedUse}},
		{"günlük kullanım", []string{MixedUse}},
		{"çok amaçlı", []string{MixedUse}},
		{"kis sartlari", []string{WinterReady}},
		{"kış", []string{WinterReady}},
		{"winter", []string{WinterReady}},
		{"snow", []string{WinterReady}},
		{"dört çeker", []string{WinterReady}},
		{"4x4", []string{WinterReady}},
		{"awd", []string{WinterReady}},
		{"4wd", []string{WinterReady}},
		{"aile", []string{FamilyFocused}},
		{"family", []string{FamilyFocused}},
		{"geniş iç mekan", []string{FamilyFocused}},
		{"7 koltuk", []string{FamilyFocused}},
		{"isofix", []string{FamilyFocused, Safety}},
		{"dinamik", []string{Sport, Performance}},
		{"sportif", []string{Sport}},
		{"sporty", []string{Sport}},
		{"spor", []string{Sport}},

		// priorities
		{"adas", []string{Safety, TechnologyADAS}},
		{"şerit takip", []string{Safety, TechnologyADAS}},
		{"adaptif hız sabitleyici", []string{Safety, TechnologyADAS}},
		{"kör nokta", []string{Safety, TechnologyADAS}},
		{"güvenli", []string{Safety}},
		{"safety", []string{Safety}},
		{"euro ncap", []string{Safety}},
		{"ncap", []string{Safety}},
		{"hava yastığı", []string{Safety}},
		{"airbag", []string{Safety}},
		{"yakıt tasarrufu", []string{LowConsumption}},
		{"düşük yakıt", []string{LowConsumption}},
		{"ekonomik", []string{LowConsumption}},
		{"economy", []string{LowConsumption}},
		{"verimli", []string{LowConsumption}},
		{"efficient", []string{LowConsumption}},
		{"elektrikli", []string{LowConsumption}},
		{"hibrit", []string{LowConsumption}},
		{"yüksek performans", []string{Performance}},
		{"performance", []string{Performance}},
		{"güçlü", []string{Performance}},
		{"powerful", []string{Performance}},
		{"hızlı", []string{Performance}},
		{"konforlu", []string{Comfort}},
		{"comfort", []string{Comfort}},
		{"sessiz", []string{Comfort}},
		{"quiet", []string{Comfort}},
		{"lüks", []string{Comfort}},
		{"luxury", []string{Comfort}},
		{"geniş", []string{Comfort}},
		{"teknoloji", []string{TechnologyADAS}},
		{"technology", []string{TechnologyADAS}},
		{"dijital kokpit", []string{TechnologyADAS}},
		{"multimedya", []string{TechnologyADAS}},
		{"otonom", []string{TechnologyADAS}},
		{"düşük bakım", []string{LowMaintenance}},
		{"bakım maliyeti", []string{LowMaintenance}},
		{"ucuz bakım", []string{LowMaintenance}},
		{"low maintenance", []string{LowMaintenance}},
		{"güvenilir", []string{LowMaintenance}},
		{"reliable", []string{LowMaintenance}},
		{"dayanıklı", []string{LowMaintenance}},
	}
}

// buildUselessKeywords returns keywords that mark a tag as carrying no
// matching signal (cargo volume, brake hardware, generic sensors).
func buildUselessKeywords() []string {
	return []string{
		"bagaj",
		"yük hacmi",
		"litre",
		"fren",
		"abs",
		"ebd",
		"disk",
		"sensör",
		"sensor",
	}
}
