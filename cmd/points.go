package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/kass/go-geohash/pkg/cellindex"
	"github.com/kass/go-geohash/pkg/export"
	"github.com/kass/go-geohash/pkg/models"
	"github.com/kass/go-geohash/pkg/postgis"
	"github.com/spf13/cobra"
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Store and query points in PostGIS by geohash",
}

var pointsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Generate random points and load them into PostGIS",
	Args:  cobra.NoArgs,
	RunE:  runPointsLoad,
}

var pointsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored points by box, cells or circle",
	Args:  cobra.NoArgs,
	RunE:  runPointsQuery,
}

var (
	numPoints   int
	numWorkers  int
	seed        int64
	loadBounds  []float64
	storePrec   int
	queryType   string
	queryCells  []string
	queryBox    []float64
	centerLat   float64
	centerLon   float64
	queryRadius float64
	limit       int
)

func init() {
	pointsCmd.PersistentFlags().IntVar(&storePrec, "store-precision", 9, "Precision of the stored geohash column")

	pointsLoadCmd.Flags().IntVarP(&numPoints, "points", "n", 100000, "Number of points to generate")
	pointsLoadCmd.Flags().IntVarP(&numWorkers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	pointsLoadCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed")
	pointsLoadCmd.Flags().Float64SliceVar(&loadBounds, "bounds", []float64{25, -125, 49, -66}, "Generation bounds: lat_min,lon_min,lat_max,lon_max")

	pointsQueryCmd.Flags().StringVarP(&queryType, "type", "t", "circle", "Query type: box, cells, circle")
	pointsQueryCmd.Flags().Float64SliceVarP(&queryBox, "box", "b", nil, "Bounding box (box query)")
	pointsQueryCmd.Flags().StringSliceVarP(&queryCells, "cells", "q", nil, "Query cells (cells query)")
	pointsQueryCmd.Flags().Float64Var(&centerLat, "lat", 0, "Center latitude (circle query)")
	pointsQueryCmd.Flags().Float64Var(&centerLon, "lon", 0, "Center longitude (circle query)")
	pointsQueryCmd.Flags().Float64VarP(&queryRadius, "radius", "r", 1000, "Radius in meters (circle query)")
	pointsQueryCmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of results to display")

	pointsCmd.AddCommand(pointsLoadCmd, pointsQueryCmd)
	rootCmd.AddCommand(pointsCmd)
}

func openStore(ctx context.Context) (*postgis.PointStore, error) {
	pg := cfg.PostGIS
	return postgis.NewPointStore(ctx, pg.Host, pg.User, pg.Password, pg.Database, pg.Port, postgis.Options{
		Precision:        storePrec,
		MaxConnections:   pg.MaxConnections,
		QueryConcurrency: pg.QueryConcurrency,
		Logger:           logger,
	})
}

func runPointsLoad(cmd *cobra.Command, args []string) error {
	bounds, err := parseBox(loadBounds)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info().Int("points", numPoints).Int("workers", numWorkers).Msg("generating points")
	points := generateRandomPoints(numPoints, bounds, numWorkers, seed)

	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	start := time.Now()
	inserted, err := store.BulkInsertPoints(ctx, points)
	if err != nil {
		return err
	}
	if err := store.CreateIndexes(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	logger.Info().
		Int("inserted", inserted).
		Dur("elapsed", elapsed).
		Float64("points_per_sec", float64(inserted)/elapsed.Seconds()).
		Msg("loaded points")

	stats, err := store.GetDatabaseStats(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "%s: %v\n", k, stats[k])
	}
	return nil
}

func runPointsQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var results []*models.Point
	switch queryType {
	case "box":
		b, err := parseBox(queryBox)
		if err != nil {
			return err
		}
		results, err = store.QueryBox(ctx, b)
		if err != nil {
			return fmt.Errorf("box query failed: %w", err)
		}

	case "cells":
		if len(queryCells) == 0 {
			return fmt.Errorf("cells query requires --cells")
		}
		results, err = store.QueryCells(ctx, queryCells, cfg.Geohash.Accuracy)
		if err != nil {
			return fmt.Errorf("cells query failed: %w", err)
		}

	case "circle":
		results, err = store.QueryCircle(ctx, centerLat, centerLon, queryRadius, cfg.Geohash.Precision, cfg.Geohash.Accuracy)
		if err != nil {
			return fmt.Errorf("circle query failed: %w", err)
		}

	default:
		return fmt.Errorf("unknown query type: %s", queryType)
	}
	logger.Info().Str("type", queryType).Int("results", len(results)).Msg("query done")

	if len(results) > limit {
		logger.Info().Int("limit", limit).Msg("showing first results (use --limit to see more)")
		results = results[:limit]
	}

	switch cfg.Output.Format {
	case "json":
		return out.json(results)
	case "geojson":
		return export.Write(os.Stdout, export.Points(results))
	}

	for i, point := range results {
		if queryType == "circle" {
			dist := cellindex.Distance(centerLat, centerLon, point.Location.Lat, point.Location.Lon)
			fmt.Fprintf(os.Stdout, "%d. %s %s: (%.6f, %.6f) - %.3f km\n",
				i+1, point.ID, out.styles.code.Render(point.Geohash), point.Location.Lat, point.Location.Lon, dist)
		} else {
			fmt.Fprintf(os.Stdout, "%d. %s %s: (%.6f, %.6f)\n",
				i+1, point.ID, out.styles.code.Render(point.Geohash), point.Location.Lat, point.Location.Lon)
		}
	}
	return nil
}

func generateRandomPoints(n int, bounds models.BoundingBox, workers int, seed int64) []*models.Point {
	if workers < 1 {
		workers = 1
	}
	points := make([]*models.Point, n)

	pointsPerWorker := n / workers
	remainder := n % workers

	type workRange struct {
		start, end int
	}
	work := make(chan workRange, workers)
	done := make(chan bool, workers)

	for w := 0; w < workers; w++ {
		go func(workerID int) {
			// Each worker gets its own random generator to avoid contention
			r := rand.New(rand.NewSource(seed + int64(workerID)))

			for wr := range work {
				for i := wr.start; i < wr.end; i++ {
					points[i] = &models.Point{
						ID: fmt.Sprintf("point_%d", i),
						Location: &models.Location{
							Lat: bounds.BottomLeft.Lat + r.Float64()*bounds.Height(),
							Lon: bounds.BottomLeft.Lon + r.Float64()*bounds.Width(),
						},
					}
				}
			}
			done <- true
		}(w)
	}

	start := 0
	for w := 0; w < workers; w++ {
		size := pointsPerWorker
		if w < remainder {
			size++
		}
		work <- workRange{start: start, end: start + size}
		start += size
	}
	close(work)

	for w := 0; w < workers; w++ {
		<-done
	}

	return points
}
