package models

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point represents a geo point with an ID and location
type Point struct {
	ID       string    `json:"id"`
	Location *Location `json:"location"`
	Geohash  string    `json:"geohash,omitempty"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// NewBoundingBox builds a box from (latMin, lonMin, latMax, lonMax).
func NewBoundingBox(latMin, lonMin, latMax, lonMax float64) BoundingBox {
	return BoundingBox{
		BottomLeft: Location{Lat: latMin, Lon: lonMin},
		TopRight:   Location{Lat: latMax, Lon: lonMax},
	}
}

// World is the full WGS84 degree range.
func World() BoundingBox {
	return NewBoundingBox(-90, -180, 90, 180)
}

// Width is the longitude extent in degrees.
func (b BoundingBox) Width() float64 {
	return b.TopRight.Lon - b.BottomLeft.Lon
}

// Height is the latitude extent in degrees.
func (b BoundingBox) Height() float64 {
	return b.TopRight.Lat - b.BottomLeft.Lat
}

func (b BoundingBox) Center() Location {
	return Location{
		Lat: (b.BottomLeft.Lat + b.TopRight.Lat) / 2,
		Lon: (b.BottomLeft.Lon + b.TopRight.Lon) / 2,
	}
}

// Contains reports whether loc lies inside the box, edges included.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// ContainsBox reports whether other lies entirely inside the box.
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	return b.Contains(other.BottomLeft) && b.Contains(other.TopRight)
}

// Intersects reports whether the two boxes share any area or edge.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.BottomLeft.Lat <= other.TopRight.Lat && other.BottomLeft.Lat <= b.TopRight.Lat &&
		b.BottomLeft.Lon <= other.TopRight.Lon && other.BottomLeft.Lon <= b.TopRight.Lon
}

// Cell is a decoded geohash cell
type Cell struct {
	Code string      `json:"code"`
	Box  BoundingBox `json:"box"`
}
