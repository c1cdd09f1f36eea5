package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/tags"
)

// TagNormalizeRequestDTO carries free-form tags.
type TagNormalizeRequestDTO struct {
	Tags []string `json:"tags"`
}

// TagNormalizeResponseDTO carries canonical tags plus the per-tag mapping.
type TagNormalizeResponseDTO struct {
	Tags    []string            `json:"tags"`
	Mapping map[string][]string `json:"mapping"`
}

// NormalizeTags handles POST /tags/normalize.
func NormalizeTags(w http.ResponseWriter, r *http.Request) {
	var req TagNormalizeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	mapping := make(map[string][]string, len(req.Tags))
	for _, t := range req.Tags {
		mapping[t] = tags.MapTag(t)
	}

	writeJSON(w, http.StatusOK, TagNormalizeResponseDTO{
		Tags:    tags.NormalizeCarTags(req.Tags),
		Mapping: mapping,
	})
}

// Vocabulary handles GET /tags/vocabulary.
func Vocabulary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"usage":      tags.UsageTags(),
		"priorities": tags.PriorityTags(),
	})
}

// BudgetBandDTO is one price band.
type BudgetBandDTO struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

func toBandDTO(b matching.BudgetRange) BudgetBandDTO {
	return BudgetBandDTO{Name: b.Name, Min: b.Min, Max: b.Max}
}

// BudgetBands handles GET /budget-bands. With ?budget= it returns the band the
// budget falls in and the widened band used by the fallback tier.
func BudgetBands(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("budget")
	if raw == "" {
		bands := matching.BudgetBands()
		out := make([]BudgetBandDTO, len(bands))
		for i, b := range bands {
			out[i] = toBandDTO(b)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"bands": out})
		return
	}

	budget, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(budget) || math.IsInf(budget, 0) || budget < 0 {
		writeError(w, http.StatusBadRequest, "invalid budget", raw)
		return
	}

	band := matching.RoundBudgetToRange(budget)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"budget":   budget,
		"band":     toBandDTO(band),
		"expanded": toBandDTO(band.Expanded()),
	})
}
