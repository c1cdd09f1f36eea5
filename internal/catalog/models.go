// Package catalog provides the car catalog domain types shared by the matcher,
// the tag normalizer, storage and the API surfaces.
package catalog

import (
	"errors"
	"math"
	"strings"
)

// Common errors
var (
	ErrNegativeBudget     = errors.New("budget must not be negative")
	ErrUnsupportedFormat  = errors.New("unsupported catalog format")
	ErrInvalidBudgetValue = errors.New("budget must be a finite number")
)

// Entry is one vehicle record in the catalog. Entries are treated as
// read-only once loaded; scoring produces ScoredEntry copies.
type Entry struct {
	ID       string   `json:"id" yaml:"id"`
	Brand    string   `json:"brand" yaml:"brand"`
	Model    string   `json:"model" yaml:"model"`
	Trim     string   `json:"trim,omitempty" yaml:"trim,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Body     string   `json:"body" yaml:"body"`
	Fuel     string   `json:"fuel" yaml:"fuel"`
	PriceTRY float64  `json:"priceTRY" yaml:"priceTRY"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Specs    *Specs   `json:"specs,omitempty" yaml:"specs,omitempty"`
}

// DisplayName returns "Brand Model Trim" without empty parts.
func (e Entry) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Brand, e.Model, e.Trim} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy that does not share the tag slice or specs with e.
func (e Entry) Clone() Entry {
	out := e
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	if e.Specs != nil {
		specs := e.Specs.clone()
		out.Specs = &specs
	}
	return out
}

// Specs holds the optional technical attributes of a vehicle. Every section
// and field may be absent.
type Specs struct {
	Performance *PerformanceSpecs `json:"performans,omitempty" yaml:"performans,omitempty"`
	Drivetrain  *DrivetrainSpecs  `json:"guc_aktarma,omitempty" yaml:"guc_aktarma,omitempty"`
	Safety      *SafetySpecs      `json:"güvenlik,omitempty" yaml:"güvenlik,omitempty"`
}

// PerformanceSpecs holds engine output figures.
type PerformanceSpecs struct {
	HorsePower *float64 `json:"guc_hp,omitempty" yaml:"guc_hp,omitempty"`
}

// DrivetrainSpecs holds power transmission details.
type DrivetrainSpecs struct {
	Traction *string `json:"cekis,omitempty" yaml:"cekis,omitempty"`
}

// SafetySpecs holds driver assistance flags.
type SafetySpecs struct {
	ADAS *bool `json:"adas,omitempty" yaml:"adas,omitempty"`
}

// HorsePower returns the engine output and whether it is known.
func (s *Specs) HorsePower() (float64, bool) {
	if s == nil || s.Performance == nil || s.Performance.HorsePower == nil {
		return 0, false
	}
	hp := *s.Performance.HorsePower
	if math.IsNaN(hp) {
		return 0, false
	}
	return hp, true
}

// Traction returns the drivetrain descriptor, or "" when unknown.
func (s *Specs) Traction() string {
	if s == nil || s.Drivetrain == nil || s.Drivetrain.Traction == nil {
		return ""
	}
	return *s.Drivetrain.Traction
}

// HasADAS reports whether the ADAS flag is present and true.
func (s *Specs) HasADAS() bool {
	if s == nil || s.Safety == nil || s.Safety.ADAS == nil {
		return false
	}
	return *s.Safety.ADAS
}

func (s Specs) clone() Specs {
	out := Specs{}
	if s.Performance != nil {
		p := *s.Performance
		if p.HorsePower != nil {
			hp := *p.HorsePower
			p.HorsePower = &hp
		}
		out.Performance = &p
	}
	if s.Drivetrain != nil {
		d := *s.Drivetrain
		if d.Traction != nil {
			t := *d.Traction
			d.Traction = &t
		}
		out.Drivetrain = &d
	}
	if s.Safety != nil {
		sf := *s.Safety
		if sf.ADAS != nil {
			a := *sf.ADAS
			sf.ADAS = &a
		}
		out.Safety = &sf
	}
	return out
}

// Criteria is the user's filter request. Every field is optional; an unset
// field is not scored.
type Criteria struct {
	Budget     *float64 `json:"budget,omitempty" yaml:"budget,omitempty"`
	Body       string   `json:"body,omitempty" yaml:"body,omitempty"`
	Fuel       string   `json:"fuel,omitempty" yaml:"fuel,omitempty"`
	Usage      []string `json:"usage,omitempty" yaml:"usage,omitempty"`
	Priorities []string `json:"priorities,omitempty" yaml:"priorities,omitempty"`
}

// HasBudget reports whether a budget was supplied.
func (c Criteria) HasBudget() bool {
	return c.Budget != nil
}

// WantedTags returns usage followed by priorities.
func (c Criteria) WantedTags() []string {
	out := make([]string, 0, len(c.Usage)+len(c.Priorities))
	out = append(out, c.Usage...)
	out = append(out, c.Priorities...)
	return out
}

// IsEmpty reports whether no dimension is set.
func (c Criteria) IsEmpty() bool {
	return c.Budget == nil && strings.TrimSpace(c.Body) == "" && strings.TrimSpace(c.Fuel) == "" &&
		len(c.Usage) == 0 && len(c.Priorities) == 0
}

// Validate rejects budgets the band lookup cannot meaningfully bucket.
func (c Criteria) Validate() error {
	if c.Budget == nil {
		return nil
	}
	b := *c.Budget
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return ErrInvalidBudgetValue
	}
	if b < 0 {
		return ErrNegativeBudget
	}
	return nil
}

// Budget is a helper for building criteria literals.
func Budget(v float64) *float64 {
	return &v
}

// MatchDetails records which dimensions contributed to a score.
type MatchDetails struct {
	Budget bool `json:"budget"`
	Body   bool `json:"body"`
	Fuel   bool `json:"fuel"`
	Tags   int  `json:"tags"`
}

// ScoredEntry is a catalog entry annotated with its match score.
type ScoredEntry struct {
	Entry
	MatchScore   int          `json:"matchScore"`
	MatchDetails MatchDetails `json:"matchDetails"`
}
