package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kass/go-geohash/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(dir, "absent.yaml"), false)
		require.NoError(t, err)
		assert.Equal(t, defaultConfig(), cfg)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(dir, "absent.yaml"), true)
		assert.Error(t, err)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "geohash.yaml")
		require.NoError(t, os.WriteFile(path, []byte("geohash:\n  precision: 8\noutput:\n  format: json\npostgis:\n  port: 6543\n"), 0o644))

		cfg, err := loadConfig(path, true)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Geohash.Precision)
		assert.Equal(t, 1.0, cfg.Geohash.Accuracy)
		assert.Equal(t, "json", cfg.Output.Format)
		assert.Equal(t, 6543, cfg.PostGIS.Port)
		assert.Equal(t, "localhost", cfg.PostGIS.Host)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("invalid format", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output:\n  format: xml\n"), 0o644))
		_, err := loadConfig(path, true)
		assert.ErrorContains(t, err, "xml")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("geohash: [\n"), 0o644))
		_, err := loadConfig(path, true)
		assert.ErrorContains(t, err, "failed to parse config")
	})
}

func TestPrinterCodes(t *testing.T) {
	testCases := []struct {
		format   string
		codes    []string
		expected string
	}{
		{"text", []string{"9q8yyk", "dr5reg"}, "9q8yyk\ndr5reg\n"},
		{"json", []string{"9q8yyk"}, "[\n  \"9q8yyk\"\n]\n"},
		{"json", nil, "[]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, newPrinter(&buf, tc.format, false).codes(tc.codes))
			assert.Equal(t, tc.expected, buf.String())
		})
	}
}

func TestPrinterGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newPrinter(&buf, "geojson", false).codes([]string{"s", "u"}))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "u", doc.Features[1].Properties["geohash"])
}

func TestPrinterCells(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newPrinter(&buf, "json", false).cells([]string{"9q8yyk"}))

	var cells []models.Cell
	require.NoError(t, json.Unmarshal(buf.Bytes(), &cells))
	require.Len(t, cells, 1)
	assert.Equal(t, models.NewBoundingBox(37.77099609375, -122.420654296875, 37.7764892578125, -122.40966796875), cells[0].Box)

	buf.Reset()
	require.NoError(t, newPrinter(&buf, "text", false).cells([]string{"s"}))
	assert.Equal(t, "s lat [0, 45] lon [0, 45] center (22.5, 22.5)\n", buf.String())

	assert.Error(t, newPrinter(&buf, "text", false).cells([]string{"a"}))
}

func TestPrinterMembership(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newPrinter(&buf, "text", false).membership([]string{"9q8yyk", "dr5"}, []bool{true, false}))
	assert.Equal(t, "9q8yyk in\ndr5 out\n", buf.String())

	buf.Reset()
	require.NoError(t, newPrinter(&buf, "json", false).membership([]string{"9q8yyk"}, []bool{true}))
	assert.JSONEq(t, `[{"code":"9q8yyk","in":true}]`, buf.String())
}

func TestReadCodes(t *testing.T) {
	codes, err := readCodes(strings.NewReader("9q8yy  9q8yz\n\ndr5r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"9q8yy", "9q8yz", "dr5r"}, codes)
}

func TestParseBox(t *testing.T) {
	b, err := parseBox([]float64{37.7, -122.5, 37.8, -122.3})
	require.NoError(t, err)
	assert.Equal(t, models.NewBoundingBox(37.7, -122.5, 37.8, -122.3), b)

	_, err = parseBox([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestGenerateRandomPoints(t *testing.T) {
	bounds := models.NewBoundingBox(25, -125, 49, -66)
	points := generateRandomPoints(1003, bounds, 4, 42)
	require.Len(t, points, 1003)

	ids := make(map[string]bool)
	for _, p := range points {
		require.NotNil(t, p)
		assert.True(t, bounds.Contains(*p.Location))
		ids[p.ID] = true
	}
	assert.Len(t, ids, 1003)
}
