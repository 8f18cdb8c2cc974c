package postgis

import (
	"testing"

	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"host=localhost port=5432 user=geo password=secret dbname=geodb sslmode=disable",
		DSN("localhost", "geo", "secret", "geodb", 5432))
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, geohash.MaxPrecision, opts.Precision)
	assert.Equal(t, 25, opts.MaxConnections)
	assert.Equal(t, 8, opts.QueryConcurrency)

	opts = Options{Precision: 20, MaxConnections: 4, QueryConcurrency: 2}.withDefaults()
	assert.Equal(t, geohash.MaxPrecision, opts.Precision)
	assert.Equal(t, 4, opts.MaxConnections)
	assert.Equal(t, 2, opts.QueryConcurrency)
}

func TestPrefixPatterns(t *testing.T) {
	testCases := []struct {
		name      string
		codes     []string
		precision int
		expected  []string
	}{
		{"shorter codes scan by prefix", []string{"9q8y", "dr5"}, 9, []string{"9q8y%", "dr5%"}},
		{"longer codes truncate", []string{"9q8yykxyz0"}, 6, []string{"9q8yyk%"}},
		{"truncation duplicates collapse", []string{"9q8yyk1", "9q8yyk2", "9q8yy"}, 6, []string{"9q8yyk%", "9q8yy%"}},
		{"world", []string{""}, 9, []string{"%"}},
		{"empty", nil, 9, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, prefixPatterns(tc.codes, tc.precision))
		})
	}
}

func TestMergePoints(t *testing.T) {
	a := &models.Point{ID: "b", Location: &models.Location{Lat: 1, Lon: 1}}
	b := &models.Point{ID: "a", Location: &models.Location{Lat: 2, Lon: 2}}
	c := &models.Point{ID: "c", Location: &models.Location{Lat: 3, Lon: 3}}

	merged := mergePoints([][]*models.Point{{a, c}, nil, {b, a}})
	ids := make([]string, len(merged))
	for i, p := range merged {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Empty(t, mergePoints(nil))
}
