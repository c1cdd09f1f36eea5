package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/recommend"
)

// Recommender ranks the catalog against buyer criteria.
type Recommender interface {
	Recommend(ctx context.Context, criteria catalog.Criteria) (*recommend.Result, error)
}

// RecommendationHandler handles recommendation requests.
type RecommendationHandler struct {
	logger      *observability.Logger
	recommender Recommender
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(logger *observability.Logger, recommender Recommender) *RecommendationHandler {
	return &RecommendationHandler{
		logger:      logger,
		recommender: recommender,
	}
}

// RecommendationRequestDTO represents the API request for recommendations.
type RecommendationRequestDTO struct {
	Budget     *float64 `json:"budget,omitempty"`
	Body       string   `json:"body,omitempty"`
	Fuel       string   `json:"fuel,omitempty"`
	Usage      []string `json:"usage,omitempty"`
	Priorities []string `json:"priorities,omitempty"`
}

// Criteria converts the request into matcher criteria.
func (d RecommendationRequestDTO) Criteria() catalog.Criteria {
	return catalog.Criteria{
		Budget:     d.Budget,
		Body:       d.Body,
		Fuel:       d.Fuel,
		Usage:      d.Usage,
		Priorities: d.Priorities,
	}
}

// Create handles POST /recommendations.
func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecommendationRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.recommender.Recommend(ctx, req.Criteria())
	if err != nil {
		if errors.Is(err, catalog.ErrNegativeBudget) || errors.Is(err, catalog.ErrInvalidBudgetValue) {
			writeError(w, http.StatusBadRequest, "invalid budget", err.Error())
			return
		}
		h.logger.WithContext(ctx).Error().Err(err).Msg("Recommendation failed")
		writeError(w, http.StatusInternalServerError, "recommendation failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
