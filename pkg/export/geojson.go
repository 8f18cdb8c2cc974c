// Package export renders cells and points as GeoJSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Bound converts a box to an orb bound (lon, lat order)
func Bound(box models.BoundingBox) orb.Bound {
	return orb.Bound{
		Min: orb.Point{box.BottomLeft.Lon, box.BottomLeft.Lat},
		Max: orb.Point{box.TopRight.Lon, box.TopRight.Lat},
	}
}

// CellFeature is the cell polygon with its code and precision as properties
func CellFeature(cell models.Cell) *geojson.Feature {
	f := geojson.NewFeature(Bound(cell.Box).ToPolygon())
	f.ID = cell.Code
	f.Properties["geohash"] = cell.Code
	f.Properties["precision"] = len(cell.Code)
	return f
}

// Cells decodes codes into a collection of cell polygons, in input order
func Cells(codes []string) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, code := range codes {
		cell, err := geohash.DecodeCell(code)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", code, err)
		}
		fc.Append(CellFeature(cell))
	}
	return fc, nil
}

// Points builds a collection of point features. Points without a location are skipped.
func Points(points []*models.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		if p == nil || p.Location == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{p.Location.Lon, p.Location.Lat})
		f.ID = p.ID
		if p.Geohash != "" {
			f.Properties["geohash"] = p.Geohash
		}
		fc.Append(f)
	}
	return fc
}

// Write encodes fc as indented JSON
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	return nil
}
