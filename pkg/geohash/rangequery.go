package geohash

import (
	"fmt"
	"iter"
	"math"

	"github.com/kass/go-geohash/pkg/models"
)

// EarthRadius is the WGS84 equatorial radius in meters.
const EarthRadius = 6378137.0

// keeps float-to-int conversions of the circle bounds well defined
const maxCircleSpan = math.MaxInt32

// CreateRect enumerates, row by row, every cell at precision between the
// cells of the two corners, both ends inclusive. The sequence can be ranged
// over any number of times.
func CreateRect(latMin, lonMin, latMax, lonMax float64, precision int) (iter.Seq[string], error) {
	if err := checkPrecision(precision); err != nil {
		return nil, err
	}
	lat1, lon1, err := SplitBits(encode(latMin, lonMin, precision))
	if err != nil {
		return nil, err
	}
	lat2, lon2, err := SplitBits(encode(latMax, lonMax, precision))
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		for y := lat1; y < lat2+1; y++ {
			for x := lon1; x < lon2+1; x++ {
				if !yield(joinBits(y, x, precision)) {
					return
				}
			}
		}
	}, nil
}

// CoverBox collects the CreateRect cells of box.
func CoverBox(box models.BoundingBox, precision int) ([]string, error) {
	seq, err := CreateRect(box.BottomLeft.Lat, box.BottomLeft.Lon, box.TopRight.Lat, box.TopRight.Lon, precision)
	if err != nil {
		return nil, err
	}
	var codes []string
	for code := range seq {
		codes = append(codes, code)
	}
	return codes, nil
}

// CreateCircle enumerates cells at precision that together cover the circle
// of radius meters around (lat, lon). Cell extents are converted to meters
// at the center latitude and the circle is rasterized column by column; the
// result is a superset of the exact covering.
func CreateCircle(lat, lon, radius float64, precision int) (iter.Seq[string], error) {
	if err := checkPrecision(precision); err != nil {
		return nil, err
	}
	if math.IsNaN(radius) || radius < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}

	code := encode(lat, lon, precision)
	box, err := Decode(code)
	if err != nil {
		return nil, err
	}
	latIdx, lonIdx, err := SplitBits(code)
	if err != nil {
		return nil, err
	}

	w, h := gridSize(box.Height(), box.Width(), lat)
	if !(w > 0) || !(h > 0) || radius/w > maxCircleSpan || radius/h > maxCircleSpan {
		return nil, fmt.Errorf("%w: cell %q is %.3gm x %.3gm at latitude %v", ErrDegenerateCell, code, w, h, lat)
	}
	a := (lon - box.BottomLeft.Lon) / box.Width()
	b := (lat - box.BottomLeft.Lat) / box.Height()

	return func(yield func(string) bool) {
		gridPoints(a, b, radius, w, h, func(x, y int64) bool {
			return yield(joinBits(latIdx+y, lonIdx+x, precision))
		})
	}, nil
}

// gridSize converts a cell's degree extents to meters (width, height) at lat
// using the equirectangular approximation.
func gridSize(latSpan, lonSpan, lat float64) (float64, float64) {
	w := lonSpan * (math.Pi / 180) * EarthRadius * math.Cos(lat*math.Pi/180)
	h := latSpan * (math.Pi / 180) * EarthRadius
	return w, h
}

// gridPoints emits the (column, row) offsets, relative to the center cell, of
// every cell touched by a circle of radius r centered at fractional position
// (a, b) inside a w x h cell. Columns are scanned west to east, rows south to
// north within each column.
func gridPoints(a, b, r, w, h float64, emit func(x, y int64) bool) {
	f := func(x float64) float64 {
		d := (a - x) * w
		return r*r - d*d
	}

	xLast := int64(math.Floor(a + r/w))
	for x := int64(math.Ceil(a-r/w)) - 1; x <= xLast; x++ {
		fx := float64(x)
		// widest chord within the column [x, x+1]
		nearest := math.Min(math.Max(a, fx), fx+1)
		reach := math.Max(math.Max(f(fx), f(fx+1)), math.Max(f(nearest), 0))
		p := math.Sqrt(reach) / h

		yLast := int64(math.Floor(b + p))
		for y := int64(math.Ceil(b-p)) - 1; y <= yLast; y++ {
			if !emit(x, y) {
				return
			}
		}
	}
}
