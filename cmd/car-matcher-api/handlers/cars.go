package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/tags"
)

const maxListLimit = 100

// CarStore reads the stored catalog.
type CarStore interface {
	Car(ctx context.Context, id string) (*storage.CarRecord, error)
	Cars(ctx context.Context, q storage.CarQuery) ([]*storage.CarRecord, error)
}

// CarHandler handles catalog browsing requests.
type CarHandler struct {
	logger *observability.Logger
	store  CarStore
}

// NewCarHandler creates a new car handler.
func NewCarHandler(logger *observability.Logger, store CarStore) *CarHandler {
	return &CarHandler{
		logger: logger,
		store:  store,
	}
}

// CarListResponseDTO wraps a catalog listing.
type CarListResponseDTO struct {
	Cars  []*storage.CarRecord `json:"cars"`
	Count int                  `json:"count"`
}

// List handles GET /cars.
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := storage.CarQuery{
		Body: r.URL.Query().Get("body"),
		Fuel: r.URL.Query().Get("fuel"),
	}

	var err error
	if q.Limit, err = intParam(r, "limit", maxListLimit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}
	if q.Offset, err = intParam(r, "offset", 0); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset", err.Error())
		return
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}

	cars, err := h.store.Cars(ctx, q)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("List cars failed")
		writeError(w, http.StatusInternalServerError, "list cars failed", err.Error())
		return
	}
	if cars == nil {
		cars = []*storage.CarRecord{}
	}

	writeJSON(w, http.StatusOK, CarListResponseDTO{Cars: cars, Count: len(cars)})
}

// Get handles GET /cars/{carId}.
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	car, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// SuggestTags handles GET /cars/{carId}/suggested-tags.
func (h *CarHandler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	car, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"carId": car.ID,
		"tags":  tags.SuggestTagsFromCarData(car.Entry),
	})
}

func (h *CarHandler) load(w http.ResponseWriter, r *http.Request) (*storage.CarRecord, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "carId")

	car, err := h.store.Car(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "car not found", id)
		return nil, false
	}
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("car_id", id).Msg("Get car failed")
		writeError(w, http.StatusInternalServerError, "get car failed", err.Error())
		return nil, false
	}
	return car, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New(name + " must not be negative")
	}
	return v, nil
}
