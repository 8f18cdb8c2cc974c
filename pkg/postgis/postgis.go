// Package postgis stores points in a PostGIS table next to their geohash and
// answers cell-set queries with prefix scans over that column.
package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const batchSize = 10000

// Options tunes a PointStore. Zero values take the defaults.
type Options struct {
	// Precision of the stored geohash column
	Precision        int
	MaxConnections   int
	QueryConcurrency int
	Logger           zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Precision <= 0 || o.Precision > geohash.MaxPrecision {
		o.Precision = geohash.MaxPrecision
	}
	if o.MaxConnections <= 0 {
		o.MaxConnections = 25
	}
	if o.QueryConcurrency <= 0 {
		o.QueryConcurrency = 8
	}
	return o
}

type PointStore struct {
	db               *sql.DB
	logger           zerolog.Logger
	precision        int
	queryConcurrency int
}

// DSN builds a lib/pq key/value connection string
func DSN(host, user, password, dbname string, port int) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// NewPointStore connects to PostGIS with discrete connection parameters
func NewPointStore(ctx context.Context, host, user, password, dbname string, port int, opts Options) (*PointStore, error) {
	return Open(ctx, DSN(host, user, password, dbname, port), opts)
}

// Open connects using a DSN or postgres:// URL
func Open(ctx context.Context, dsn string, opts Options) (*PointStore, error) {
	opts = opts.withDefaults()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxConnections)
	db.SetMaxIdleConns(opts.MaxConnections)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PointStore{
		db:               db,
		logger:           opts.Logger.With().Str("component", "postgis").Logger(),
		precision:        opts.Precision,
		queryConcurrency: opts.QueryConcurrency,
	}, nil
}

// Precision is the length of the stored geohash codes
func (p *PointStore) Precision() int {
	return p.precision
}

// InitSchema recreates the points table
func (p *PointStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`DROP TABLE IF EXISTS geo_points;`,
		`CREATE TABLE geo_points (
			id TEXT PRIMARY KEY,
			location GEOMETRY(POINT, 4326) NOT NULL,
			geohash TEXT NOT NULL
		);`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// CreateIndexes builds the GIST index on location and a prefix-scan index on geohash
func (p *PointStore) CreateIndexes(ctx context.Context) error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_geo_points_location ON geo_points USING GIST(location);`,
		`CREATE INDEX IF NOT EXISTS idx_geo_points_geohash ON geo_points (geohash text_pattern_ops);`,
		`ANALYZE geo_points;`,
	}

	start := time.Now()
	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	p.logger.Info().Dur("elapsed", time.Since(start)).Msg("created indexes")
	return nil
}

// BulkInsertPoints inserts points in batches, filling in each geohash at the
// store precision. Points without a location are skipped.
func (p *PointStore) BulkInsertPoints(ctx context.Context, points []*models.Point) (int, error) {
	stmt, err := p.db.PrepareContext(ctx, `
		INSERT INTO geo_points (id, location, geohash)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStmt := tx.StmtContext(ctx, stmt)

	inserted := 0
	for _, point := range points {
		if point == nil || point.Location == nil {
			continue
		}

		code, err := geohash.Encode(point.Location.Lat, point.Location.Lon, p.precision)
		if err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("failed to encode point %s: %w", point.ID, err)
		}
		point.Geohash = code

		if _, err := txStmt.ExecContext(ctx, point.ID, point.Location.Lon, point.Location.Lat, code); err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("failed to insert point %s: %w", point.ID, err)
		}
		inserted++

		if inserted%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return inserted, fmt.Errorf("failed to commit batch: %w", err)
			}
			p.logger.Debug().Int("inserted", inserted).Msg("committed batch")

			tx, err = p.db.BeginTx(ctx, nil)
			if err != nil {
				return inserted, fmt.Errorf("failed to begin new transaction: %w", err)
			}
			txStmt = tx.StmtContext(ctx, stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit final batch: %w", err)
	}

	return inserted, nil
}

const selectPoints = `SELECT id, ST_Y(location) AS lat, ST_X(location) AS lon, geohash FROM geo_points`

// QueryBox performs a bounding box query on the geometry column
func (p *PointStore) QueryBox(ctx context.Context, box models.BoundingBox) ([]*models.Point, error) {
	query := selectPoints + ` WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326) ORDER BY id`

	return p.queryPoints(ctx, query,
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat)
}

// QueryCells returns the points whose geohash matches any of codes by prefix
// in either direction. The codes are compressed at accuracy first, so with
// accuracy below 1 the result may include points from sibling cells.
func (p *PointStore) QueryCells(ctx context.Context, codes []string, accuracy float64) ([]*models.Point, error) {
	compressed, err := geohash.Compress(codes, accuracy)
	if err != nil {
		return nil, fmt.Errorf("failed to compress query cells: %w", err)
	}

	patterns := prefixPatterns(compressed, p.precision)
	p.logger.Debug().
		Int("cells", len(codes)).
		Int("compressed", len(compressed)).
		Int("patterns", len(patterns)).
		Msg("querying cells")

	results := make([][]*models.Point, len(patterns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.queryConcurrency)

	for i, pattern := range patterns {
		g.Go(func() error {
			points, err := p.queryPoints(gctx, selectPoints+` WHERE geohash LIKE $1`, pattern)
			if err != nil {
				return fmt.Errorf("cell %q: %w", pattern, err)
			}
			results[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergePoints(results), nil
}

// QueryCircle returns the points inside the circle covering at precision
func (p *PointStore) QueryCircle(ctx context.Context, lat, lon, radius float64, precision int, accuracy float64) ([]*models.Point, error) {
	seq, err := geohash.CreateCircle(lat, lon, radius, precision)
	if err != nil {
		return nil, err
	}

	var codes []string
	for code := range seq {
		codes = append(codes, code)
	}
	return p.QueryCells(ctx, codes, accuracy)
}

// prefixPatterns turns query codes into LIKE patterns over codes of the given
// length. A query longer than the stored codes can only match its own prefix.
func prefixPatterns(codes []string, precision int) []string {
	seen := make(map[string]struct{}, len(codes))
	patterns := make([]string, 0, len(codes))
	for _, code := range codes {
		if len(code) > precision {
			code = code[:precision]
		}
		pattern := code + "%"
		if _, ok := seen[pattern]; ok {
			continue
		}
		seen[pattern] = struct{}{}
		patterns = append(patterns, pattern)
	}
	return patterns
}

func mergePoints(batches [][]*models.Point) []*models.Point {
	seen := make(map[string]struct{})
	var merged []*models.Point
	for _, batch := range batches {
		for _, point := range batch {
			if _, ok := seen[point.ID]; ok {
				continue
			}
			seen[point.ID] = struct{}{}
			merged = append(merged, point)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}

func (p *PointStore) queryPoints(ctx context.Context, query string, args ...any) ([]*models.Point, error) {
	start := time.Now()
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []*models.Point
	for rows.Next() {
		var id, code string
		var lat, lon float64

		if err := rows.Scan(&id, &lat, &lon, &code); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		results = append(results, &models.Point{
			ID:       id,
			Location: &models.Location{Lat: lat, Lon: lon},
			Geohash:  code,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	p.logger.Debug().Int("rows", len(results)).Dur("elapsed", time.Since(start)).Msg("query done")
	return results, nil
}

// Count returns the number of points in the database
func (p *PointStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM geo_points").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// GetDatabaseStats returns database size and table statistics
func (p *PointStore) GetDatabaseStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var dbSize string
	err := p.db.QueryRowContext(ctx, `SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&dbSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get database size: %w", err)
	}
	stats["database_size"] = dbSize

	var tableSize, indexSize string
	err = p.db.QueryRowContext(ctx, `
		SELECT
			pg_size_pretty(pg_total_relation_size('geo_points')) as total_size,
			pg_size_pretty(pg_indexes_size('geo_points')) as index_size
	`).Scan(&tableSize, &indexSize)
	if err != nil {
		// Table might not exist yet
		stats["table_size"] = "0 bytes"
		stats["index_size"] = "0 bytes"
	} else {
		stats["table_size"] = tableSize
		stats["index_size"] = indexSize
	}

	count, _ := p.Count(ctx)
	stats["row_count"] = count
	stats["geohash_precision"] = p.precision

	return stats, nil
}

// Close closes the database connection
func (p *PointStore) Close() error {
	return p.db.Close()
}
