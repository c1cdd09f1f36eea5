package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/car-matcher/cmd/car-matcher-api/handlers"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/recommend"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
)

func newTestServer(t *testing.T, checks map[string]handlers.Check) http.Handler {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(ctx, db))

	svc := recommend.NewService(storage.NewCarRepository(db, storage.DriverSQLite), recommend.Options{})
	_, err = svc.Import(ctx, []catalog.Entry{
		{ID: "togg", Brand: "Togg", Model: "T10X", Body: "SUV", Fuel: "Elektrik", PriceTRY: 1_200_000, Tags: []string{"şehir"}},
		{ID: "egea", Brand: "Fiat", Model: "Egea", Body: "Sedan", Fuel: "Dizel", PriceTRY: 900_000, Tags: []string{"ekonomik"}},
		{ID: "passat", Brand: "Volkswagen", Model: "Passat", Body: "Sedan", Fuel: "Dizel", PriceTRY: 2_500_000},
	}, nil)
	require.NoError(t, err)

	cfg := DefaultAppConfig()
	cfg.ReadyChecks = checks
	return NewRouter(observability.NewNopLogger(), svc, cfg)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t, map[string]handlers.Check{
		"database": func(ctx context.Context) error { return nil },
	})

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady_ReportsFailures(t *testing.T) {
	h := newTestServer(t, map[string]handlers.Check{
		"cache": func(ctx context.Context) error { return errors.New("redis down") },
	})

	rec := do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}

func TestRecommendations(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantFirst  string
		wantTier   matching.Tier
	}{
		{
			name:       "electric suv",
			body:       map[string]interface{}{"budget": 1_100_000, "body": "SUV", "fuel": "Elektrik", "usage": []string{"Şehir içi"}},
			wantStatus: http.StatusOK,
			wantFirst:  "togg",
			wantTier:   matching.TierThreshold,
		},
		{
			name:       "nothing matches falls back to top list",
			body:       map[string]interface{}{"body": "Coupe"},
			wantStatus: http.StatusOK,
			wantFirst:  "togg",
			wantTier:   matching.TierTop,
		},
		{
			name:       "negative budget",
			body:       map[string]interface{}{"budget": -5},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/recommendations", tc.body)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())

			if tc.wantStatus != http.StatusOK {
				var errBody map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
				assert.NotEmpty(t, errBody["error"])
				return
			}

			var result recommend.Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			require.NotEmpty(t, result.Cars)
			assert.Equal(t, tc.wantFirst, result.Cars[0].ID)
			assert.Equal(t, tc.wantTier, result.Tier)
			assert.NotEmpty(t, result.Summary)
		})
	}
}

func TestCars(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/cars?body=sedan&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list handlers.CarListResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "egea", list.Cars[0].ID)
	assert.Equal(t, []string{"Düşük tüketim"}, list.Cars[0].Tags)

	rec = do(t, h, http.MethodGet, "/api/v1/cars?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/cars/togg", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"brand":"Togg"`)

	rec = do(t, h, http.MethodGet, "/api/v1/cars/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/cars/passat/suggested-tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"carId":"passat","tags":[]}`, rec.Body.String())
}

func TestTags(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/tags/normalize", map[string][]string{
		"tags": {"şehir", "ADAS", "bagaj", "Panoramik cam tavan"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.TagNormalizeResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Şehir içi", "Güvenlik", "Teknoloji/ADAS", "Panoramik cam tavan"}, resp.Tags)
	assert.Equal(t, []string{}, resp.Mapping["bagaj"])

	rec = do(t, h, http.MethodGet, "/api/v1/tags/vocabulary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vocab map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vocab))
	assert.Len(t, vocab["usage"], 6)
	assert.Len(t, vocab["priorities"], 6)
}

func TestBudgetBands(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/budget-bands", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all map[string][]handlers.BudgetBandDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all["bands"], 5)

	rec = do(t, h, http.MethodGet, "/api/v1/budget-bands?budget=1100000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var one struct {
		Band     handlers.BudgetBandDTO `json:"band"`
		Expanded handlers.BudgetBandDTO `json:"expanded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, 1_000_000.0, one.Band.Min)
	assert.Equal(t, 1_250_000.0, one.Band.Max)
	assert.InDelta(t, 800_000.0, one.Expanded.Min, 0.001)
	assert.InDelta(t, 1_625_000.0, one.Expanded.Max, 0.001)

	rec = do(t, h, http.MethodGet, "/api/v1/budget-bands?budget=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recommendations", nil)
	req.Header.Set("Origin", "https://dealer.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dealer.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
