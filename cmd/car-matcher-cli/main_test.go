package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/recommend"
)

const testCatalog = `[
  {"id": "togg", "brand": "Togg", "model": "T10X", "body": "SUV", "fuel": "Elektrik", "priceTRY": 1200000, "tags": ["şehir"]},
  {"id": "egea", "brand": "Fiat", "model": "Egea", "body": "Sedan", "fuel": "Dizel", "priceTRY": 900000, "tags": ["ekonomik"]},
  {"id": "passat", "brand": "Volkswagen", "model": "Passat", "body": "Sedan", "fuel": "Dizel", "priceTRY": 2500000}
]`

// setupEnv points the CLI at a fresh sqlite file and the in-memory cache.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(dir, "cars.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("CACHE_TTL", "")

	catalogPath := filepath.Join(dir, "cars.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))
	return catalogPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file="}, args...))
	err := root.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()
	out, err := runCLI(t, append([]string{"--json"}, args...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestVersion(t *testing.T) {
	setupEnv(t)

	var got map[string]string
	runJSON(t, &got, "version")
	assert.Equal(t, version, got["version"])
	assert.NotEmpty(t, got["go"])

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "car-matcher-cli v"+version)
}

func TestMigrate(t *testing.T) {
	setupEnv(t)

	var got map[string]string
	runJSON(t, &got, "migrate")
	assert.Equal(t, "migrated", got["status"])
	assert.Equal(t, "sqlite", got["driver"])
}

func TestImportAndRecommend(t *testing.T) {
	catalogPath := setupEnv(t)

	var imported ImportResultDTO
	runJSON(t, &imported, "import", catalogPath)
	assert.Equal(t, 3, imported.Imported)
	assert.Equal(t, 3, imported.Total)
	assert.Len(t, imported.CatalogVersion, 16)

	var result recommend.Result
	runJSON(t, &result, "recommend",
		"--budget", "1100000", "--body", "SUV", "--fuel", "Elektrik", "--usage", "Şehir içi")
	require.NotEmpty(t, result.Cars)
	assert.Equal(t, "togg", result.Cars[0].ID)
	assert.Equal(t, matching.TierThreshold, result.Tier)
	assert.Equal(t, imported.CatalogVersion, result.CatalogVersion)
	assert.Contains(t, result.Summary, "araç bulundu")

	var fallback recommend.Result
	runJSON(t, &fallback, "recommend", "--body", "Coupe")
	assert.Equal(t, matching.TierTop, fallback.Tier)
	assert.Len(t, fallback.Cars, 3)
}

func TestRecommend_TextOutput(t *testing.T) {
	catalogPath := setupEnv(t)
	_, err := runCLI(t, "--json", "import", catalogPath)
	require.NoError(t, err)

	out, err := runCLI(t, "--no-color", "recommend", "--body", "Sedan", "--fuel", "Dizel")
	require.NoError(t, err)
	assert.Contains(t, out, "araç bulundu")
	assert.Contains(t, out, "Fiat Egea")
	assert.Contains(t, out, "900.000 TL")
}

func TestRecommend_RejectsNegativeBudget(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "--json", "recommend", "--budget=-1")
	assert.Error(t, err)
}

func TestImport_MissingFile(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "--json", "import", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestCarsAndSuggest(t *testing.T) {
	catalogPath := setupEnv(t)
	_, err := runCLI(t, "--json", "import", catalogPath)
	require.NoError(t, err)

	var list struct {
		Cars []struct {
			ID   string   `json:"id"`
			Tags []string `json:"tags"`
		} `json:"cars"`
		Count int `json:"count"`
	}
	runJSON(t, &list, "cars", "--body", "sedan")
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "egea", list.Cars[0].ID)
	assert.Equal(t, []string{"Düşük tüketim"}, list.Cars[0].Tags)

	var suggested struct {
		CarID string   `json:"carId"`
		Tags  []string `json:"tags"`
	}
	runJSON(t, &suggested, "tags", "suggest", "--id", "passat")
	assert.Equal(t, "passat", suggested.CarID)
	assert.Empty(t, suggested.Tags)

	_, err = runCLI(t, "--json", "tags", "suggest", "--id", "unknown")
	assert.Error(t, err)
}

func TestCarsDelete(t *testing.T) {
	catalogPath := setupEnv(t)
	_, err := runCLI(t, "--json", "import", catalogPath)
	require.NoError(t, err)

	var deleted map[string]string
	runJSON(t, &deleted, "cars", "delete", "egea")
	assert.Equal(t, "egea", deleted["deleted"])

	var list struct {
		Count int `json:"count"`
	}
	runJSON(t, &list, "cars")
	assert.Equal(t, 2, list.Count)

	_, err = runCLI(t, "--json", "cars", "delete", "egea")
	assert.Error(t, err)
}

func TestTagsNormalize(t *testing.T) {
	setupEnv(t)

	var got struct {
		Tags     []string        `json:"tags"`
		Mappings []TagMappingDTO `json:"mappings"`
	}
	runJSON(t, &got, "tags", "normalize", "şehir", "ADAS", "bagaj")
	assert.Equal(t, []string{"Şehir içi", "Güvenlik", "Teknoloji/ADAS"}, got.Tags)
	require.Len(t, got.Mappings, 3)
	assert.Equal(t, "bagaj", got.Mappings[2].Input)
	assert.Empty(t, got.Mappings[2].Canonical)
}

func TestTagsVocabulary(t *testing.T) {
	setupEnv(t)

	var got map[string][]string
	runJSON(t, &got, "tags", "vocabulary")
	assert.Len(t, got["usage"], 6)
	assert.Len(t, got["priorities"], 6)
}

func TestBands(t *testing.T) {
	setupEnv(t)

	var all map[string][]matching.BudgetRange
	runJSON(t, &all, "bands")
	assert.Len(t, all["bands"], 5)

	var one struct {
		Band     matching.BudgetRange `json:"band"`
		Expanded matching.BudgetRange `json:"expanded"`
	}
	runJSON(t, &one, "bands", "1100000")
	assert.Equal(t, "B", one.Band.Name)
	assert.InDelta(t, 800_000.0, one.Expanded.Min, 0.001)
	assert.InDelta(t, 1_625_000.0, one.Expanded.Max, 0.001)

	_, err := runCLI(t, "bands", "abc")
	assert.Error(t, err)

	out, err := runCLI(t, "--no-color", "bands")
	require.NoError(t, err)
	assert.Contains(t, out, "500.000 TL")
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 TL"},
		{999, "999 TL"},
		{1_250_000, "1.250.000 TL"},
		{-45_000, "-45.000 TL"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatPrice(tc.in))
	}
}

func TestTable_NoColor(t *testing.T) {
	var buf bytes.Buffer
	ui := NewUI(&buf, false, true)
	ui.Table([]string{"Car", "Fuel"}, [][]string{{"Togg T10X", "Elektrik"}})

	assert.Contains(t, buf.String(), "| Togg T10X | Elektrik |")
	assert.Contains(t, buf.String(), "+-----------+----------+")
}
