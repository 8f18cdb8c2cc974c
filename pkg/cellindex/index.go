// Package cellindex keeps a cached covering set of geohash cells in R-Trees
// partitioned into longitude bands, and answers the questions a map viewport
// asks of it: which cached cells intersect a box, which contain a point,
// which viewport cells still need fetching.
package cellindex

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// spatialCell wraps a cell to implement rtreego.Spatial interface
type spatialCell struct {
	*models.Cell
	rect rtreego.Rect
}

func (sc *spatialCell) Bounds() rtreego.Rect {
	return sc.rect
}

// Index is a thread-safe set of geohash cells of mixed precision
type Index struct {
	partitions    []*rtreego.Rtree
	numPartitions int
	mu            sync.RWMutex
	itemCount     atomic.Int64

	// Partition bounds for query routing
	partitionBounds []models.BoundingBox

	cells   map[string]*spatialCell
	matcher *geohash.Matcher // nil until needed after a change
}

// NewIndex creates an index with one partition per CPU
func NewIndex() *Index {
	return NewIndexWithPartitions(runtime.NumCPU())
}

// NewIndexWithPartitions creates an index with the given number of longitude bands
func NewIndexWithPartitions(numPartitions int) *Index {
	if numPartitions <= 0 {
		numPartitions = runtime.NumCPU()
	}

	partitions := make([]*rtreego.Rtree, numPartitions)
	partitionBounds := make([]models.BoundingBox, numPartitions)

	lonRange := 360.0 / float64(numPartitions)
	for i := 0; i < numPartitions; i++ {
		partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLon := -180.0 + float64(i)*lonRange
		maxLon := minLon + lonRange
		if i == numPartitions-1 {
			maxLon = 180.0
		}
		partitionBounds[i] = models.NewBoundingBox(-90, minLon, 90, maxLon)
	}

	return &Index{
		partitions:      partitions,
		numPartitions:   numPartitions,
		partitionBounds: partitionBounds,
		cells:           make(map[string]*spatialCell),
	}
}

func boxRect(box models.BoundingBox) (rtreego.Rect, error) {
	return rtreego.NewRectFromPoints(
		rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon},
		rtreego.Point{box.TopRight.Lat, box.TopRight.Lon},
	)
}

// Add decodes and indexes codes. Codes already present are ignored. Nothing
// is added if any code is invalid.
func (idx *Index) Add(codes ...string) error {
	if len(codes) == 0 {
		return nil
	}

	batch, err := decodeBatch(codes)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.addLocked(batch)
	return nil
}

func decodeBatch(codes []string) (map[string]*spatialCell, error) {
	batch := make(map[string]*spatialCell, len(codes))
	for _, code := range codes {
		if _, ok := batch[code]; ok {
			continue
		}
		cell, err := geohash.DecodeCell(code)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cell: %w", err)
		}
		rect, err := boxRect(cell.Box)
		if err != nil {
			return nil, fmt.Errorf("invalid cell bounds %q: %w", code, err)
		}
		batch[code] = &spatialCell{Cell: &cell, rect: rect}
	}
	return batch, nil
}

// addLocked inserts the cells of batch not indexed yet. Callers hold the write lock.
func (idx *Index) addLocked(batch map[string]*spatialCell) {
	// A cell wider than a band lands in every band it overlaps
	partitioned := make([][]*spatialCell, idx.numPartitions)
	for code, sc := range batch {
		if _, ok := idx.cells[code]; ok {
			continue
		}
		idx.cells[code] = sc
		for _, p := range idx.relevantPartitions(sc.Box) {
			partitioned[p] = append(partitioned[p], sc)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < idx.numPartitions; i++ {
		if len(partitioned[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(partitionIdx int, items []*spatialCell) {
			defer wg.Done()
			for _, item := range items {
				idx.partitions[partitionIdx].Insert(item)
			}
		}(i, partitioned[i])
	}

	wg.Wait()
	idx.itemCount.Store(int64(len(idx.cells)))
	idx.matcher = nil
}

// Count returns the number of indexed cells
func (idx *Index) Count() int64 {
	return idx.itemCount.Load()
}

// Codes returns the indexed codes in lexical order
func (idx *Index) Codes() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.codesLocked()
}

func (idx *Index) codesLocked() []string {
	codes := make([]string, 0, len(idx.cells))
	for code := range idx.cells {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// QueryBox returns the cells overlapping box. Cells that only touch its edge
// are not included.
func (idx *Index) QueryBox(box models.BoundingBox) ([]models.Cell, error) {
	if box.Height() < 0 || box.Width() < 0 {
		return nil, nil
	}
	bounds, err := boxRect(box)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.search(box, bounds, func(*spatialCell) bool { return true }), nil
}

// CellsAt returns the cells containing loc, edges included
func (idx *Index) CellsAt(loc models.Location) []models.Cell {
	probe := rtreego.Point{loc.Lat, loc.Lon}.ToRect(tolerance)
	box := models.NewBoundingBox(loc.Lat, loc.Lon, loc.Lat, loc.Lon)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.search(box, probe, func(sc *spatialCell) bool {
		return sc.Box.Contains(loc)
	})
}

// search fans out over the partitions overlapping box and merges the
// distinct matches, sorted by code. Callers hold the read lock.
func (idx *Index) search(box models.BoundingBox, bounds rtreego.Rect, keep func(*spatialCell) bool) []models.Cell {
	relevant := idx.relevantPartitions(box)
	resultsChan := make(chan []*spatialCell, len(relevant))

	for _, partitionIdx := range relevant {
		go func(p int) {
			var found []*spatialCell
			for _, result := range idx.partitions[p].SearchIntersect(bounds) {
				sc, ok := result.(*spatialCell)
				if ok && keep(sc) {
					found = append(found, sc)
				}
			}
			resultsChan <- found
		}(partitionIdx)
	}

	seen := make(map[string]struct{})
	var cells []models.Cell
	for i := 0; i < len(relevant); i++ {
		for _, sc := range <-resultsChan {
			if _, dup := seen[sc.Code]; dup {
				continue
			}
			seen[sc.Code] = struct{}{}
			cells = append(cells, *sc.Cell)
		}
	}

	sort.Slice(cells, func(i, j int) bool { return cells[i].Code < cells[j].Code })
	return cells
}

// Covers reports whether code equals, contains, or lies inside an indexed cell
func (idx *Index) Covers(code string) (bool, error) {
	if err := geohash.Validate(code); err != nil {
		return false, err
	}
	return idx.getMatcher().Match(code), nil
}

func (idx *Index) getMatcher() *geohash.Matcher {
	idx.mu.RLock()
	m := idx.matcher
	idx.mu.RUnlock()
	if m != nil {
		return m
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.matcher == nil {
		idx.matcher = geohash.NewMatcher(idx.codesLocked())
	}
	return idx.matcher
}

// Missing returns the cells of the precision covering of box that no indexed
// cell covers, in row order. An empty result means the cache already serves
// the whole viewport.
func (idx *Index) Missing(box models.BoundingBox, precision int) ([]string, error) {
	seq, err := geohash.CreateRect(box.BottomLeft.Lat, box.BottomLeft.Lon, box.TopRight.Lat, box.TopRight.Lon, precision)
	if err != nil {
		return nil, err
	}

	m := idx.getMatcher()
	var missing []string
	for code := range seq {
		if !m.Match(code) {
			missing = append(missing, code)
		}
	}
	return missing, nil
}

// NearestCells returns up to n cells ordered by the planar distance in
// degrees from loc to the nearest point of each cell, the metric the R-Trees
// search by. Cells containing loc come first at distance zero. Ties go to the
// cell whose center is closer, then to the lower code.
func (idx *Index) NearestCells(loc models.Location, n int) []models.Cell {
	if n <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type nearestResult struct {
		cell     *models.Cell
		distance float64
		center   float64
	}

	resultsChan := make(chan []nearestResult, idx.numPartitions)
	for i := 0; i < idx.numPartitions; i++ {
		go func(p int) {
			tree := idx.partitions[p]
			if tree.Size() == 0 {
				resultsChan <- nil
				return
			}
			// Extra candidates keep ties at the cutoff
			results := tree.NearestNeighbors(n*2, rtreego.Point{loc.Lat, loc.Lon})

			nearest := make([]nearestResult, 0, len(results))
			for _, result := range results {
				sc, ok := result.(*spatialCell)
				if !ok {
					continue
				}
				c := sc.Box.Center()
				nearest = append(nearest, nearestResult{
					cell:     sc.Cell,
					distance: boxDistance(loc, sc.Box),
					center:   Distance(loc.Lat, loc.Lon, c.Lat, c.Lon),
				})
			}
			resultsChan <- nearest
		}(i)
	}

	seen := make(map[string]struct{})
	var all []nearestResult
	for i := 0; i < idx.numPartitions; i++ {
		for _, r := range <-resultsChan {
			if _, dup := seen[r.cell.Code]; dup {
				continue
			}
			seen[r.cell.Code] = struct{}{}
			all = append(all, r)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		if all[i].center != all[j].center {
			return all[i].center < all[j].center
		}
		return all[i].cell.Code < all[j].cell.Code
	})
	if len(all) > n {
		all = all[:n]
	}

	cells := make([]models.Cell, len(all))
	for i, r := range all {
		cells[i] = *r.cell
	}
	return cells
}

// boxDistance is the squared planar distance from loc to box, zero inside it
func boxDistance(loc models.Location, box models.BoundingBox) float64 {
	dLat := math.Max(0, math.Max(box.BottomLeft.Lat-loc.Lat, loc.Lat-box.TopRight.Lat))
	dLon := math.Max(0, math.Max(box.BottomLeft.Lon-loc.Lon, loc.Lon-box.TopRight.Lon))
	return dLat*dLat + dLon*dLon
}

// Compact replaces the indexed cells with their compressed covering set.
// The index is locked for the whole rebuild, so cells added concurrently are
// either compressed with the rest or added afterwards.
func (idx *Index) Compact(accuracy float64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	compressed, err := geohash.Compress(idx.codesLocked(), accuracy)
	if err != nil {
		return fmt.Errorf("failed to compress cells: %w", err)
	}
	batch, err := decodeBatch(compressed)
	if err != nil {
		return err
	}

	idx.clearLocked()
	idx.addLocked(batch)
	return nil
}

// Clear removes all cells from the index
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.clearLocked()
}

func (idx *Index) clearLocked() {
	for i := 0; i < idx.numPartitions; i++ {
		idx.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	idx.cells = make(map[string]*spatialCell)
	idx.matcher = nil
	idx.itemCount.Store(0)
}

// relevantPartitions returns the indices of partitions whose band overlaps box
func (idx *Index) relevantPartitions(box models.BoundingBox) []int {
	var relevant []int
	for i, bounds := range idx.partitionBounds {
		if box.BottomLeft.Lon <= bounds.TopRight.Lon &&
			box.TopRight.Lon >= bounds.BottomLeft.Lon {
			relevant = append(relevant, i)
		}
	}
	return relevant
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
