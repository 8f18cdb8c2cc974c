package geohash

import (
	"fmt"
	"sort"
)

// unit offsets (dLat, dLon) in result order after the cell itself
var neighborOffsets = [8][2]int64{
	{1, 0},   // north
	{1, -1},  // north-west
	{0, -1},  // west
	{-1, -1}, // south-west
	{-1, 0},  // south
	{-1, 1},  // south-east
	{0, 1},   // east
	{1, 1},   // north-east
}

// Neighbors returns code followed by its eight adjacent cells in the order
// north, north-west, west, south-west, south, south-east, east, north-east.
// Cells on the poles or the antimeridian get neighbors from the opposite
// edge of the grid.
func Neighbors(code string) ([]string, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: neighbors of the empty code", ErrInvalidPrecision)
	}
	lat, lon, err := SplitBits(code)
	if err != nil {
		return nil, err
	}

	precision := len(code)
	result := make([]string, 0, len(neighborOffsets)+1)
	result = append(result, code)
	for _, d := range neighborOffsets {
		result = append(result, joinBits(lat+d[0], lon+d[1], precision))
	}
	return result, nil
}

// ManyNeighbors returns the sorted union of the neighbor sets of codes.
func ManyNeighbors(codes []string) ([]string, error) {
	seen := make(map[string]struct{}, len(codes)*9)
	for _, code := range codes {
		ns, err := Neighbors(code)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			seen[n] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for code := range seen {
		result = append(result, code)
	}
	sort.Strings(result)
	return result, nil
}
