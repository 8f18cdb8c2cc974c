package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kass/go-geohash/pkg/cellindex"
	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
)

type BenchmarkResult struct {
	QueryType     string
	TotalQueries  int
	Failed        int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
	QueriesPerSec float64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	TotalResults  int64
	AvgResults    float64
}

// operation runs one query and returns the number of cells or points it produced
type operation func(r *rand.Rand) (int, error)

type bounds struct {
	minLat, maxLat, minLon, maxLon float64
}

func (b bounds) randomPoint(r *rand.Rand) (float64, float64) {
	return b.minLat + r.Float64()*(b.maxLat-b.minLat), b.minLon + r.Float64()*(b.maxLon-b.minLon)
}

func main() {
	var (
		queryType  = flag.String("t", "circle", "Operation: encode, rect, circle, compress, isin, cover, mixed")
		numQueries = flag.Int("n", 1000, "Number of operations to run")
		workers    = flag.Int("w", runtime.NumCPU(), "Number of concurrent workers")
		precision  = flag.Int("p", 6, "Geohash precision")
		// Geographic bounds for random queries (default: roughly USA)
		minLat = flag.Float64("min-lat", 25.0, "Minimum latitude for random queries")
		maxLat = flag.Float64("max-lat", 49.0, "Maximum latitude for random queries")
		minLon = flag.Float64("min-lon", -125.0, "Minimum longitude for random queries")
		maxLon = flag.Float64("max-lon", -66.0, "Maximum longitude for random queries")
		// Operation-specific parameters
		boxSize  = flag.Float64("box-size", 0.2, "Box size in degrees (rect, cover)")
		radius   = flag.Float64("radius", 5000, "Radius in meters (circle, compress, isin)")
		accuracy = flag.Float64("accuracy", 1.0, "Compression accuracy")
		points   = flag.Int("points", 10000, "Point codes per isin call")
		cached   = flag.Int("cached", 100000, "Cached cells in the cover index")
	)
	flag.Parse()

	if *workers < 1 {
		*workers = 1
	}
	b := bounds{*minLat, *maxLat, *minLon, *maxLon}

	randomBox := func(r *rand.Rand) models.BoundingBox {
		lat, lon := b.randomPoint(r)
		return models.NewBoundingBox(lat, lon, lat+*boxSize, lon+*boxSize)
	}
	circle := func(r *rand.Rand) ([]string, error) {
		lat, lon := b.randomPoint(r)
		seq, err := geohash.CreateCircle(lat, lon, *radius, *precision)
		if err != nil {
			return nil, err
		}
		var codes []string
		for code := range seq {
			codes = append(codes, code)
		}
		return codes, nil
	}

	ops := map[string]operation{
		"encode": func(r *rand.Rand) (int, error) {
			lat, lon := b.randomPoint(r)
			_, err := geohash.Encode(lat, lon, *precision)
			return 1, err
		},
		"rect": func(r *rand.Rand) (int, error) {
			codes, err := geohash.CoverBox(randomBox(r), *precision)
			return len(codes), err
		},
		"circle": func(r *rand.Rand) (int, error) {
			codes, err := circle(r)
			return len(codes), err
		},
		"compress": func(r *rand.Rand) (int, error) {
			codes, err := circle(r)
			if err != nil {
				return 0, err
			}
			compressed, err := geohash.Compress(codes, *accuracy)
			return len(compressed), err
		},
	}

	var pointCodes []string
	if *queryType == "isin" || *queryType == "mixed" {
		pointCodes = randomCodes(*points, b, geohash.MaxPrecision)
		ops["isin"] = func(r *rand.Rand) (int, error) {
			queries, err := circle(r)
			if err != nil {
				return 0, err
			}
			matched := 0
			for _, in := range geohash.IsIn(pointCodes, queries) {
				if in {
					matched++
				}
			}
			return matched, nil
		}
	}

	if *queryType == "cover" || *queryType == "mixed" {
		log.Printf("Building cell index with %d cached cells...\n", *cached)
		idx := cellindex.NewIndex()
		if err := idx.Add(randomCodes(*cached, b, *precision)...); err != nil {
			log.Fatalf("Failed to build cell index: %v", err)
		}
		log.Printf("Cell index holds %d cells\n", idx.Count())
		ops["cover"] = func(r *rand.Rand) (int, error) {
			missing, err := idx.Missing(randomBox(r), *precision)
			return len(missing), err
		}
	}

	var op operation
	if *queryType == "mixed" {
		names := []string{"encode", "rect", "circle", "compress", "isin", "cover"}
		op = func(r *rand.Rand) (int, error) {
			return ops[names[r.Intn(len(names))]](r)
		}
	} else {
		var ok bool
		if op, ok = ops[*queryType]; !ok {
			log.Fatalf("Unknown query type: %s", *queryType)
		}
	}

	log.Printf("Running %d %s operations with %d workers...\n", *numQueries, *queryType, *workers)
	result := runBenchmark(*queryType, *numQueries, *workers, op)

	// Print results
	fmt.Println("\n=== Benchmark Results ===")
	fmt.Printf("Query Type: %s\n", result.QueryType)
	fmt.Printf("Precision: %d\n", *precision)
	fmt.Printf("Total Queries: %d\n", result.TotalQueries)
	fmt.Printf("Failed Queries: %d\n", result.Failed)
	fmt.Printf("Total Duration: %v\n", result.TotalDuration)
	fmt.Printf("Average Duration: %v\n", result.AvgDuration)
	fmt.Printf("Queries/Second: %.2f\n", result.QueriesPerSec)
	fmt.Printf("Min Duration: %v\n", result.MinDuration)
	fmt.Printf("Max Duration: %v\n", result.MaxDuration)
	fmt.Printf("Total Results: %d\n", result.TotalResults)
	fmt.Printf("Avg Results/Query: %.2f\n", result.AvgResults)
	fmt.Printf("Workers Used: %d\n", *workers)
	fmt.Printf("CPU Cores: %d\n", runtime.NumCPU())
}

func randomCodes(n int, b bounds, precision int) []string {
	r := rand.New(rand.NewSource(rand.Int63()))
	codes := make([]string, n)
	for i := range codes {
		lat, lon := b.randomPoint(r)
		codes[i], _ = geohash.Encode(lat, lon, precision)
	}
	return codes
}

func runBenchmark(name string, numQueries, workers int, op operation) BenchmarkResult {
	var (
		totalResults int64
		failed       int64
		minDuration  = time.Hour
		maxDuration  time.Duration
		completed    int
		mu           sync.Mutex
	)

	startTime := time.Now()

	// Worker pool
	queryCh := make(chan int, numQueries)
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(rand.Int63()))

			for range queryCh {
				queryStart := time.Now()
				n, err := op(r)
				queryDuration := time.Since(queryStart)

				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&totalResults, int64(n))

				mu.Lock()
				completed++
				if queryDuration < minDuration {
					minDuration = queryDuration
				}
				if queryDuration > maxDuration {
					maxDuration = queryDuration
				}
				mu.Unlock()
			}
		}()
	}

	// Send queries
	for i := 0; i < numQueries; i++ {
		queryCh <- i
	}
	close(queryCh)

	wg.Wait()
	totalDuration := time.Since(startTime)

	result := BenchmarkResult{
		QueryType:     name,
		TotalQueries:  numQueries,
		Failed:        failed,
		TotalDuration: totalDuration,
		QueriesPerSec: float64(completed) / totalDuration.Seconds(),
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
		TotalResults:  totalResults,
	}
	if completed > 0 {
		result.AvgDuration = totalDuration / time.Duration(completed)
		result.AvgResults = float64(totalResults) / float64(completed)
	} else {
		result.MinDuration = 0
	}
	return result
}
