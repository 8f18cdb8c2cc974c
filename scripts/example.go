package main

import (
	"fmt"
	"log"

	"github.com/kass/go-geohash/pkg/cellindex"
	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
)

func main() {
	// Sample points for major US cities
	cities := []*models.Point{
		{ID: "SFO", Location: &models.Location{Lat: 37.7749, Lon: -122.4194}},
		{ID: "OAK", Location: &models.Location{Lat: 37.8044, Lon: -122.2712}},
		{ID: "SJC", Location: &models.Location{Lat: 37.3382, Lon: -121.8863}},
		{ID: "LAX", Location: &models.Location{Lat: 34.0522, Lon: -118.2437}},
		{ID: "NYC", Location: &models.Location{Lat: 40.7128, Lon: -74.0060}},
	}

	// Example 1: Encode the cities
	fmt.Println("=== City Geohashes ===")
	codes := make([]string, len(cities))
	for i, city := range cities {
		code, err := geohash.Encode(city.Location.Lat, city.Location.Lon, 7)
		if err != nil {
			log.Fatal(err)
		}
		city.Geohash = code
		codes[i] = code
		box, _ := geohash.Decode(code)
		fmt.Printf("  - %s: %s (%.4f x %.4f degrees)\n", city.ID, code, box.Height(), box.Width())
	}

	// Example 2: A map viewport over the Bay Area becomes a set of cells
	fmt.Println("\n=== Viewport Cells ===")
	viewport := models.NewBoundingBox(37.70, -122.52, 37.82, -122.35)
	cells, err := geohash.CoverBox(viewport, 5)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Viewport covered by %d cells at precision 5\n", len(cells))

	// Example 3: Only fetch what the cache does not cover yet
	fmt.Println("\n=== Cache Lookup ===")
	cache := cellindex.NewIndex()
	if err := cache.Add(cells[:10]...); err != nil {
		log.Fatal(err)
	}
	missing, err := cache.Missing(viewport, 5)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d cells cached, %d still to fetch: %v\n", cache.Count(), len(missing), missing)

	if err := cache.Add(missing...); err != nil {
		log.Fatal(err)
	}
	if err := cache.Compact(1.0); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("After fetching and compacting the cache holds %d cells: %v\n", cache.Count(), cache.Codes())

	// Example 4: Which cities fall within 20km of downtown San Francisco
	fmt.Println("\n=== Cities within 20km of SFO ===")
	in, err := geohash.IsInCircle(codes, 37.7749, -122.4194, 20000, 5)
	if err != nil {
		log.Fatal(err)
	}
	for i, city := range cities {
		if in[i] {
			distance := cellindex.Distance(37.7749, -122.4194, city.Location.Lat, city.Location.Lon)
			fmt.Printf("  - %s: %.1f km away\n", city.ID, distance)
		}
	}

	// Example 5: Neighbors of the SFO cell
	fmt.Println("\n=== Neighbors of SFO ===")
	neighbors, err := geohash.Neighbors(cities[0].Geohash)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(neighbors)

	// Example 6: Compress a 3km circle covering
	fmt.Println("\n=== Compressed Circle ===")
	seq, err := geohash.CreateCircle(37.7749, -122.4194, 3000, 7)
	if err != nil {
		log.Fatal(err)
	}
	var circle []string
	for code := range seq {
		circle = append(circle, code)
	}
	for _, accuracy := range []float64{1.0, 0.75, 0.5} {
		compressed, err := geohash.Compress(circle, accuracy)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("accuracy %.2f: %d cells -> %d cells\n", accuracy, len(circle), len(compressed))
	}
}
